package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"spam-intake-go/internal/app"
)

func main() {
	fetch := flag.Bool("fetch", false, "download recent mailbox messages into the intake directory before processing")
	dispatchReports := flag.Bool("dispatch", false, "send staged company and authority reports after processing")
	flag.Parse()

	if err := app.Run(app.Options{Fetch: *fetch, Dispatch: *dispatchReports}); err != nil {
		logrus.Fatalf("Application failed: %v", err)
	}
}
