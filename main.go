package main

import "github.com/Tiliavir/screen-time-tracker/cmd"

func main() {
	cmd.Execute()
}
