package models

// Document is a knowledge file read from disk for the duration of one request.
type Document struct {
	Filename  string
	Extension string
	Content   string
}
