package captions

type (
	Platform string
	Length   string
	Tone     string

	// Identity is the opaque user reference handed over by the identity gate.
	// The empty value means anonymous.
	Identity string

	Request struct {
		Image       []byte
		Filename    string
		Platform    Platform
		Length      Length
		Tone        Tone
		Description string
	}

	Result struct {
		Caption  string   `json:"caption"`
		Hashtags []string `json:"hashtags"`
		Tips     []string `json:"tips"`
	}
)

const (
	Instagram Platform = "instagram"
	LinkedIn  Platform = "linkedin"
	Twitter   Platform = "twitter"

	Short  Length = "short"
	Medium Length = "medium"
	Long   Length = "long"

	Casual        Tone = "casual"
	Professional  Tone = "professional"
	Humorous      Tone = "humorous"
	Inspirational Tone = "inspirational"
)

var (
	Platforms = []Platform{Instagram, LinkedIn, Twitter}
	Lengths   = []Length{Short, Medium, Long}
	Tones     = []Tone{Casual, Professional, Humorous, Inspirational}
)

func (p Platform) Valid() bool { return contains(Platforms, p) }
func (l Length) Valid() bool   { return contains(Lengths, l) }
func (t Tone) Valid() bool     { return contains(Tones, t) }

func (i Identity) Anonymous() bool { return i == "" }

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
