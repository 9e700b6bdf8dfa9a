package main

func OnEvent(from string) int { return 0 }
