package main

import "livebot/internal/bot"

func main() {
	bot.Run()
}
