package musicembed

const (
	Name      = "musicembed"
	NameUpper = "MUSICEMBED"
	Version   = "0.3.0"
)
