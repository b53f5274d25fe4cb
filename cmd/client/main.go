package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gridspace/gridspace/pkg/client"
	"github.com/gridspace/gridspace/pkg/log"
	"github.com/gridspace/gridspace/pkg/messages"
	"github.com/gridspace/gridspace/pkg/queue"
)

func main() {
	serverAddr := flag.String("server", "ws://localhost:3001", "WebSocket server address")
	spaceID := flag.String("space", "", "Space ID to join")
	token := flag.String("token", "", "Auth token")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	log.SetDefaultLogger(log.New(os.Stderr, "", log.DefaultLoggerFlag, parsedLogLevel))

	if *spaceID == "" || *token == "" {
		fmt.Fprintln(os.Stderr, "both -space and -token are required")
		os.Exit(1)
	}

	eventQueue := queue.NewInMemoryQueue(1024)
	c := client.NewClient(client.NewClientOptions{
		ServerAddr: *serverAddr,
		EventQueue: eventQueue,
	})

	if err := c.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	readErrChan := make(chan error, 1)
	go func() {
		readErrChan <- c.HandleMessages(ctx)
	}()

	if err := c.Join(*spaceID, *token); err != nil {
		fmt.Fprintf(os.Stderr, "failed to join: %v\n", err)
		os.Exit(1)
	}

	joinCtx, joinCancel := context.WithTimeout(ctx, 10*time.Second)
	defer joinCancel()
	joined, err := c.WaitForJoin(joinCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "join did not complete: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Joined space %q (%dx%d) as %s at (%d,%d) with %d others\n",
		joined.Space.Name, joined.Space.Width, joined.Space.Height,
		joined.UserID, joined.Spawn.X, joined.Spawn.Y, len(joined.Users))
	fmt.Println("Commands: w/a/s/d to move, p to print the room, q to quit")

	go printEvents(ctx, c)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var dx, dy int
		switch scanner.Text() {
		case "w":
			dy = -1
		case "s":
			dy = 1
		case "a":
			dx = -1
		case "d":
			dx = 1
		case "p":
			printRoom(c)
			continue
		case "q":
			return
		default:
			continue
		}

		if err := c.MoveBy(dx, dy); err != nil {
			fmt.Fprintf(os.Stderr, "failed to send move: %v\n", err)
			return
		}
		x, y := c.Position()
		fmt.Printf("You are at (%d,%d)\n", x, y)
	}

	select {
	case err := <-readErrChan:
		if err != nil {
			fmt.Fprintf(os.Stderr, "connection lost: %v\n", err)
		}
	default:
	}
}

// printEvents drains and reports server events a few times a second.
func printEvents(ctx context.Context, c *client.Client) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		events, err := c.ProcessEvents()
		if err != nil {
			log.Error("Failed to process events: %v", err)
			continue
		}
		for _, event := range events {
			switch e := event.(type) {
			case *messages.ServerUserJoined:
				fmt.Printf("%s joined at (%d,%d)\n", e.UserID, e.X, e.Y)
			case *messages.ServerUserLeft:
				fmt.Printf("%s left\n", e.UserID)
			case *messages.ServerMovement:
				fmt.Printf("%s moved to (%d,%d)\n", e.UserID, e.X, e.Y)
			case *messages.ServerMovementRejected:
				fmt.Printf("Move rejected, snapped back to (%d,%d)\n", e.X, e.Y)
			}
		}
	}
}

func printRoom(c *client.Client) {
	x, y := c.Position()
	fmt.Printf("You: (%d,%d)\n", x, y)
	for _, u := range c.Users() {
		fmt.Printf("%s: (%d,%d)\n", u.ID, u.X, u.Y)
	}
}
