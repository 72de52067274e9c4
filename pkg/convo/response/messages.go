package response

// Fixed degraded-path copy. Informational dead ends still nudge toward a
// recommendation; that upsell is intentional.
const (
	MessageNoInformation = "I couldn't find relevant information to answer your question. " +
		"By the way, would you like me to recommend any products?"

	MessageNoProducts = "I couldn't find products matching your criteria. " +
		"Could you provide more details about what you're looking for?"

	MessageGenerationError = "I'm having trouble putting an answer together right now. " +
		"Could you try asking again?"
)

const (
	// MaxCitations bounds how many supporting snippets an answer carries.
	MaxCitations = 5

	// MaxSnippetLength truncates citation snippets for the client.
	MaxSnippetLength = 200
)
