package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/kbot/pkg/chatbot"
	cfgPkg "github.com/xhad/kbot/pkg/config"
	"github.com/xhad/kbot/pkg/knowledge"
	"github.com/xhad/kbot/pkg/llm"
	"github.com/xhad/kbot/pkg/prompt"
	"github.com/xhad/kbot/pkg/retriever"
	"github.com/xhad/kbot/pkg/scraper"
)

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

type options struct {
	configPath string
	role       string
	stream     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to config file")
	flag.StringVar(&opts.role, "role", prompt.RoleVisitor, "User role: Teacher, Student or Visitor/Parent")
	flag.BoolVar(&opts.stream, "stream", true, "Enable streaming responses")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
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

func run(opts options) error {
	cfg, err := cfgPkg.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	loader := knowledge.NewWithConfig(knowledge.LoaderConfig{
		Dir:        cfg.Knowledge.Dir,
		Extensions: cfg.Knowledge.Extensions,
	})
	svc := chatbot.NewService(retriever.New(loader), prompt.NewBuilder(cfg.Prompt.Institution), chatEngine)

	color.Cyan("\nAsk %s as %s (type 'exit' to quit)", cfg.Prompt.Institution, opts.role)
	color.Cyan("Paste a URL to import that site into %s", cfg.Knowledge.Dir)

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.ToLower(query) == "exit" {
			break
		}

		if url := urlRegex.FindString(query); url != "" {
			if err := importSite(cfg, url); err != nil {
				color.Red("Failed to import %s: %v\n", url, err)
				continue
			}
			query = strings.TrimSpace(strings.Replace(query, url, "", 1))
			if query == "" {
				continue
			}
		}

		req := chatbot.AskRequest{Question: query, UserRole: opts.role}
		ctx := context.Background()

		if opts.stream {
			spinner := getSpinner(" Thinking...")
			first := true
			_, err = svc.AskStream(ctx, req, func(chunk string) error {
				if first {
					spinner.Finish()
					fmt.Print("\n")
					assistantPrompt("Assistant: ")
					first = false
				}
				fmt.Print(chunk)
				return nil
			})
			if first {
				spinner.Finish()
			}
			fmt.Print("\n")
		} else {
			spinner := getSpinner(" Generating response...")
			var reply string
			reply, err = svc.Ask(ctx, req)
			spinner.Finish()
			if err == nil {
				assistantPrompt("\nAssistant: %s\n", reply)
			}
		}

		if err != nil {
			if errors.Is(err, chatbot.ErrQuestionRequired) {
				color.Red(chatbot.MsgQuestionRequired)
			} else {
				color.Red("Error: %v\n", err)
			}
		}
	}

	return scanner.Err()
}

func importSite(cfg *cfgPkg.Config, url string) error {
	var count int32
	s, err := scraper.NewWithConfig(scraper.ScraperConfig{
		BaseURL:        url,
		MaxDepth:       cfg.Scraper.MaxDepth,
		RateLimit:      cfg.Scraper.RateLimit,
		IgnorePatterns: cfg.Scraper.IgnorePatterns,
		OnProgress: func(string) {
			atomic.AddInt32(&count, 1)
		},
	})
	if err != nil {
		return err
	}

	bar := getProgressBar(-1, " Importing site")
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				bar.Set(int(atomic.LoadInt32(&count)))
			}
		}
	}()

	pages, err := s.Scrape(context.Background(), url)
	close(done)
	bar.Finish()
	if err != nil {
		return err
	}

	written, err := scraper.Save(cfg.Knowledge.Dir, pages)
	if err != nil {
		return err
	}
	color.Green("\n✓ Imported %d pages into %s\n", len(written), cfg.Knowledge.Dir)
	return nil
}
