package captions

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Turn struct {
	Role Role
	Text string
}

// Conversation is the chat context shared by the caption, hashtag and tip
// prompts. It is a value: Append never modifies the receiver.
type Conversation struct {
	turns []Turn
}

func (c Conversation) Append(role Role, text string) Conversation {
	turns := make([]Turn, len(c.turns), len(c.turns)+1)
	copy(turns, c.turns)
	return Conversation{turns: append(turns, Turn{Role: role, Text: text})}
}

func (c Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c Conversation) Len() int {
	return len(c.turns)
}

// Last returns the most recent turn, or the zero Turn for an empty conversation.
func (c Conversation) Last() Turn {
	if len(c.turns) == 0 {
		return Turn{}
	}
	return c.turns[len(c.turns)-1]
}
