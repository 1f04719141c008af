package logging

import (
	"fmt"
	"log"
	"os"
)

var (
	run = os.Getenv("MOLGRAPH_RUN")

	prefix = runPrefix(run)
	flags  = log.LstdFlags | log.Lshortfile | log.Lmicroseconds
)

func runPrefix(run string) string {
	if run == "" {
		return ""
	}
	return fmt.Sprintf("[run=%s] ", run)
}

func init() {
	// for clients still using the standard log package
	log.SetPrefix(prefix)
	log.SetFlags(flags)
}

// Basic prefixes the log line with the run identifier when one is set
var Basic = &Logger{
	Default: log.New(os.Stderr, prefix, flags),
}

// NewForRun creates a logger whose lines carry the given run identifier
func NewForRun(run string) *Logger {
	return &Logger{
		Default: log.New(os.Stderr, runPrefix(run), flags),
	}
}

// Logger encapsulates multiple logging handlers
type Logger struct {
	Default *log.Logger
}

// Interface encapsulates the relevant methods of log.Logger
type Interface interface {
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

// Printf implements Interface
func (l *Logger) Printf(format string, v ...interface{}) {
	l.Default.Output(2, fmt.Sprintf(format, v...))
}

// Println implements Interface
func (l *Logger) Println(v ...interface{}) {
	l.Default.Output(2, fmt.Sprintln(v...))
}
