package main

import "dsatracker/internal/server"

func main() {
	server.StartGinServer()
}
