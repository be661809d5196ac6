package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/blundex/internal/apiclient"
	"github.com/park285/blundex/internal/service"
)

func main() {
	baseURL := os.Getenv("BLUNDEX_BASE_URL")
	if baseURL == "" {
		log.Fatal("BLUNDEX_BASE_URL is required")
	}
	moves := strings.Fields(os.Getenv("BLUNDEX_CHECK_MOVES"))
	if len(moves) == 0 {
		moves = []string{"e4", "e5", "Nf3"}
	}

	client := apiclient.New(baseURL,
		apiclient.WithTimeout(8*time.Second),
		apiclient.WithRetry(3),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Println("/healthz ok")

	st, err := client.CreateSession(ctx, service.CreateRequest{White: "blundexcheck"})
	if err != nil {
		log.Fatalf("create session error: %v", err)
	}
	log.Printf("session %s created", st.ID)
	// Always leave the server clean
	defer func() {
		game, err := client.CloseSession(context.Background(), st.ID)
		switch {
		case err != nil:
			log.Printf("close error: %v", err)
		case game != nil:
			log.Printf("closed: archived game %d (%s)", game.ID, game.Result)
		default:
			log.Println("closed: nothing archived")
		}
	}()

	for _, mv := range moves {
		st, err = client.Move(ctx, st.ID, mv)
		if err != nil {
			log.Printf("move %s error: %v", mv, err)
			return
		}
		log.Printf("move %s ok: fen=%s", mv, st.FEN)
	}

	an, err := client.Analysis(ctx, st.ID)
	if err != nil {
		log.Printf("analysis error: %v", err)
	} else {
		log.Printf("analysis ok: white activity=%d black activity=%d", an.Summary.White.Activity, an.Summary.Black.Activity)
	}

	text, err := client.ExportPGN(ctx, st.ID)
	if err != nil {
		log.Printf("pgn error: %v", err)
		return
	}
	log.Printf("pgn ok:\n%s", text)
}
