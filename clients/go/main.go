// Command relay-subscribe is a small demo subscriber: it connects to a
// Digitext relay server and prints every inbound provider event.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/solvedigitale/Digitext-last/clients/go/relay"
)

func main() {
	url := "ws://localhost:8080/ws"
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	client := relay.NewClient(url)

	print := func(topic string) relay.Handler {
		return func(data json.RawMessage) {
			fmt.Printf("[%s] %s\n", topic, data)
		}
	}
	client.On(relay.TopicInstagram, print(relay.TopicInstagram))
	client.On(relay.TopicMessenger, print(relay.TopicMessenger))
	client.On(relay.TopicWhatsApp, print(relay.TopicWhatsApp))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	fmt.Printf("subscribing to %s\n", url)
	if err := client.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintln(os.Stderr, "relay:", err)
		os.Exit(1)
	}
}
