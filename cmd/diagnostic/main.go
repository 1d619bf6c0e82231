package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/iyunix/go-juri/internal/config"
	"github.com/iyunix/go-juri/internal/services"
	"github.com/iyunix/go-juri/internal/services/completion"
	"github.com/iyunix/go-juri/internal/services/store"
)

// Sends one turn to the configured completion backend and prints the normalized reply.
func main() {
	message := flag.String("message", "What is the answer to life, universe and everything?", "text to send")
	file := flag.String("file", "", "optional document to attach")
	checkStore := flag.Bool("store", false, "also list conversations from REMOTE_STORE_URL")
	flag.Parse()

	cfg := config.Load()
	logger := services.NewProductionLogger(os.Stderr, "diagnostic", services.LogLevelDebug, false)

	fmt.Printf("🚀 Testing %s backend...\n", cfg.CompletionBackend)

	completionCfg := completion.DefaultConfig()
	completionCfg.Backend = cfg.CompletionBackend
	completionCfg.QueryURL = cfg.QueryWebhookURL
	completionCfg.DocumentURL = cfg.DocumentWebhookURL
	completionCfg.OpenAIKey = cfg.OpenAIAPIKey
	completionCfg.OpenAIBaseURL = cfg.OpenAIBaseURL
	completionCfg.OpenAIModel = cfg.OpenAIModel
	completionCfg.Timeout = cfg.CompletionTimeout
	completionCfg.SendConversationID = cfg.SendConversationID

	completer, err := completion.New(completionCfg, &http.Client{}, logger)
	if err != nil {
		log.Fatalf("❌ Invalid completion config: %v", err)
	}

	req := &completion.Request{Text: *message, ConversationID: "diagnostic"}
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("❌ Could not read %s: %v", *file, err)
		}
		req.File = &completion.Attachment{Name: filepath.Base(*file), Data: data}
	}

	start := time.Now()
	res, err := completer.Complete(context.Background(), req)
	if err != nil {
		log.Fatalf("❌ Completion failed after %v: %v", time.Since(start).Round(time.Millisecond), err)
	}
	fmt.Printf("✅ %s endpoint replied in %v\n", res.Endpoint, time.Since(start).Round(time.Millisecond))
	fmt.Printf("✅ Response: %s\n", res.Text)

	if *checkStore {
		if cfg.RemoteStoreURL == "" {
			log.Fatal("❌ REMOTE_STORE_URL not set in environment")
		}
		remote := store.NewRemoteStore(cfg.RemoteStoreURL, nil, logger)
		convs, err := remote.LoadAll(context.Background())
		if err != nil {
			log.Fatalf("❌ Conversation server check failed: %v", err)
		}
		fmt.Printf("✅ Conversation server holds %d conversations\n", len(convs))
	}
}
