package main

import "github.com/nuttyartist/notes/cmd/qmk/internal"

func main() {
	internal.Execute()
}
