// Package logging configures the standard logger the same way for every
// command.
package logging

import (
	"log"
	"os"
)

// Init sends log output to stdout with microsecond timestamps
func Init() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}

// InitWithPrefix is Init plus a fixed prefix naming the command
func InitWithPrefix(prefix string) {
	Init()
	log.SetPrefix("[" + prefix + "] ")
}
