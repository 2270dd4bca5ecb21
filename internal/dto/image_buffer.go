package dto

// BufferedImage holds an event crop before flushing to disk.

type BufferedImage struct {
	Filename string
	Label    string
	Data     []byte
}
