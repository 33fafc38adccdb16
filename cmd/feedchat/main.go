package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/feedchat/feedchat/internal/models"
	"github.com/feedchat/feedchat/internal/types"
	"github.com/feedchat/feedchat/pkg/chat"
	cfgPkg "github.com/feedchat/feedchat/pkg/config"
	"github.com/feedchat/feedchat/pkg/extract"
	"github.com/feedchat/feedchat/pkg/feed"
	"github.com/feedchat/feedchat/pkg/ingest"
	"github.com/feedchat/feedchat/pkg/llm"
	"github.com/feedchat/feedchat/pkg/store"
	"github.com/feedchat/feedchat/server"
)

type flags struct {
	configPath string
	update     bool
	serve      bool
	addr       string
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.BoolVar(&f.update, "update", false, "Poll the feed and ingest new articles, then exit")
	flag.BoolVar(&f.serve, "serve", false, "Run the WebSocket chat server")
	flag.StringVar(&f.addr, "addr", ":8080", "Listen address for -serve")
	flag.Parse()

	config, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		log.Fatal(err)
	}
	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config error: %v", e)
		}
		os.Exit(1)
	}

	if err := run(f, config); err != nil {
		log.Fatal(err)
	}
}

func run(f flags, config *cfgPkg.Config) error {
	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString: config.Database.URL,
		TableName:  config.Database.TableName,
		VectorDim:  config.Database.VectorDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	if f.update {
		return runUpdate(config, vectorStore)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       config.LLM.Model,
		MaxTokens:   config.LLM.MaxTokens,
		BaseURL:     config.LLM.BaseURL,
		Temperature: config.LLM.Temperature,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   config.Embedding.Model,
		BaseURL: config.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	engine, err := chat.NewWithConfig(chat.EngineConfig{
		Embedder:             embedder,
		Store:                vectorStore,
		Completer:            chatEngine,
		TopK:                 config.Query.TopK,
		SimilarityCutoff:     float32(config.Query.SimilarityCutoff),
		AnswerWithoutContext: config.Query.AnswerWithoutContext,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize query engine: %v", err)
	}

	if f.serve {
		return server.ListenAndServe(f.addr, engine)
	}

	return runChat(config, engine)
}

func runUpdate(config *cfgPkg.Config, vectorStore *store.VectorStore) error {
	poller, err := feed.NewWithConfig(feed.PollerConfig{URL: config.Feed.URL})
	if err != nil {
		return err
	}

	bar := getSpinner(" Checking feed...")

	pipeline, err := ingest.NewWithConfig(ingest.PipelineConfig{
		Feed:      poller,
		Extractor: extract.NewWithConfig(extract.ExtractorConfig{RateLimit: config.Feed.RateLimit}),
		Store:     vectorStore,
		EmbedderFactory: func() (types.Embedder, error) {
			bar.Describe(color.CyanString(" Loading embedding model..."))
			return llm.NewEmbedderWithConfig(llm.EmbedderConfig{
				Model:   config.Embedding.Model,
				BaseURL: config.LLM.BaseURL,
			})
		},
		OnProgress: func(entry models.FeedEntry) {
			bar.Add(1)
			bar.Describe(color.CyanString(" Checking %s", entry.Title))
		},
	})
	if err != nil {
		return err
	}

	report, err := pipeline.Run(context.Background())
	bar.Finish()
	fmt.Println()
	if err != nil {
		return err
	}

	if report.Skipped == 0 && report.Added == 0 && report.Failed == 0 {
		color.Yellow("Feed is empty, nothing to do")
		return nil
	}

	color.Green("✓ Update complete (%s)", report)
	for _, e := range report.Errors {
		color.Red("  %v", e)
	}
	return nil
}

func runChat(config *cfgPkg.Config, engine *chat.Engine) error {
	scanner := bufio.NewScanner(os.Stdin)

	if !checkPassword(scanner, config.Auth.Password) {
		color.Red("Wrong password")
		return nil
	}

	color.Cyan("\nChat with your feed articles (type 'exit' to quit)")

	session := models.NewConversation()
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.ToLower(question) == "exit" {
			break
		}

		spinner := getSpinner(" Searching articles...")
		answer, err := engine.Ask(context.Background(), session, question)
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		assistantPrompt("Assistant: %s\n", answer.Text)

		if len(answer.Citations) > 0 {
			fmt.Println("\nSources:")
			for _, c := range answer.Citations {
				fmt.Printf("- %s (%s)\n", c.Title, c.URL)
			}
		}
	}

	return nil
}

// checkPassword gates entry to the chat loop. With no password
// configured the gate is open.
func checkPassword(scanner *bufio.Scanner, password string) bool {
	if password == "" {
		return true
	}
	fmt.Print("Password: ")
	if !scanner.Scan() {
		return false
	}
	return scanner.Text() == password
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
