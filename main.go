package main

import "github.com/naka-gawa/activity-stats/cmd"

func main() {
	cmd.Execute()
}
