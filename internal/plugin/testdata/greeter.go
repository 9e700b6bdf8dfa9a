package main

import "strings"

var greeted int

func Init() { greeted = 0 }

func OnEvent(from, to, command, text string) (int, []string) {
	if command != "PRIVMSG" || !strings.HasPrefix(text, "hello") {
		return 0, nil
	}
	greeted++
	nick := strings.SplitN(from, "!", 2)[0]
	return 1, []string{"PRIVMSG " + to + " :hi " + nick}
}
