package dialogue

// Fixed replies. Topic texts and the start menu live in the catalog.
const (
	timeoutNotice    = "⏳ Sesión reiniciada por inactividad.\n\n"
	suggestionFormat = "🔍 ¿Quisiste decir <b>%s</b>?\n\n"
	notUnderstood    = "No te he entendido 🤔.\n\n"
	topicOptionsHelp = "Responde «sí» para ver otro curso o «no» para terminar. También puedes escribir el nombre de otro curso."
)

// DefaultResetKeyword brings any conversation back to the start menu.
const DefaultResetKeyword = "inicio"
