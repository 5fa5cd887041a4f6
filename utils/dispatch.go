package utils

import (
	"log"
	"time"
)

// SimulateEmailSend mimics handing a message to an external mail gateway:
// it returns immediately and logs the "delivery" on a goroutine after a
// fixed artificial delay. It never blocks or fails the calling operation.
func SimulateEmailSend(to, subject, body string, delay time.Duration) {
	go func() {
		time.Sleep(delay)
		log.Printf("*****************************************************")
		log.Printf("SIMULATED EMAIL to %s", to)
		log.Printf("Subject: %s", subject)
		log.Printf("%s", body)
		log.Printf("*****************************************************")
	}()
}
