package cmd

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/minerva/core/config"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeService struct {
	run    func(ctx context.Context) error
	closed bool
}

func (s *fakeService) Run(ctx context.Context) error { return s.run(ctx) }
func (s *fakeService) Close() error                  { s.closed = true; return nil }

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("MINERVA_CONFIG", "")
	opts := Options{ConfigEnvVar: "MINERVA_CONFIG", DefaultConfigPath: "configs/config.yaml"}
	assert.Equal(t, "configs/config.yaml", ResolveConfigPath(opts))

	t.Setenv("MINERVA_CONFIG", "/etc/minerva.yaml")
	assert.Equal(t, "/etc/minerva.yaml", ResolveConfigPath(opts))

	opts.ConfigPath = "flag.yaml"
	assert.Equal(t, "flag.yaml", ResolveConfigPath(opts))
}

func TestRunUntilCancelled(t *testing.T) {
	svc := &fakeService{run: func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}}
	var loadedFrom string
	var loggerClosed bool

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Run(ctx, Options{
		ConfigPath:  "cfg.yaml",
		DotEnvFiles: []string{"does-not-exist.env"},
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedFrom = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap:      func(context.Context, ConfigCarrier) (Service, error) { return svc, nil },
		ShutdownLogger: func() error { loggerClosed = true; return nil },
		Signals:        []os.Signal{syscall.SIGUSR1},
	})
	require.NoError(t, err)
	assert.Equal(t, "cfg.yaml", loadedFrom)
	assert.True(t, svc.closed)
	assert.True(t, loggerClosed)
}

func TestRunPropagatesFailures(t *testing.T) {
	boom := errors.New("boom")
	load := func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil }
	quiet := func() error { return nil }

	err := Run(context.Background(), Options{})
	require.Error(t, err)

	err = Run(context.Background(), Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return nil, boom },
		Bootstrap:  func(context.Context, ConfigCarrier) (Service, error) { return nil, nil },
	})
	assert.ErrorIs(t, err, boom)

	err = Run(context.Background(), Options{
		LoadConfig: load,
		Bootstrap:  func(context.Context, ConfigCarrier) (Service, error) { return nil, boom },
	})
	assert.ErrorIs(t, err, boom)

	svc := &fakeService{run: func(context.Context) error { return boom }}
	err = Run(context.Background(), Options{
		LoadConfig:     load,
		Bootstrap:      func(context.Context, ConfigCarrier) (Service, error) { return svc, nil },
		ShutdownLogger: quiet,
	})
	assert.ErrorIs(t, err, boom)
	assert.True(t, svc.closed)
}
