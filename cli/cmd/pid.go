package cmd

import "os"

func processID() int { return os.Getpid() }
