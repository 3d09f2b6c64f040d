package main

import "github.com/bryan-buckman/feedsync/internal/command"

func main() {
	command.Execute()
}
