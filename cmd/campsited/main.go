package main

import "github.com/example/campsite-bookings/cmd"

func main() {
	cmd.Execute()
}
