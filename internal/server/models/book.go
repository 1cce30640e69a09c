package models

type Book struct {
	ID        int64
	LibraryID int64
	Year      int16
	Name      string
	Genre     string
	Author    string
}
