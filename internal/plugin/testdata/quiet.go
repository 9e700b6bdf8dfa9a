package main

func OnEvent(from, to, command, text string) int {
	if text == "shh" {
		return 2
	}
	return 0
}
