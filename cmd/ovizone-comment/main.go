package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovifx6/Ovizone/internal/config"
	"github.com/ovifx6/Ovizone/internal/models"
	"github.com/ovifx6/Ovizone/internal/services"
	"github.com/ovifx6/Ovizone/internal/transport"
)

func main() {
	var (
		postID  = flag.String("post", "", "post id to comment on")
		body    = flag.String("message", "", "comment text")
		link    = flag.String("url", "", "optional link attachment")
		sticker = flag.Int64("sticker", 0, "optional sticker id")
		replyTo = flag.String("reply-to", "", "optional parent comment id")
		files   = flag.String("attach", "", "comma-separated file paths to attach")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *postID == "" {
		fmt.Fprintln(os.Stderr, "usage: ovizone-comment -post <id> -message <text> [-url u] [-sticker id] [-reply-to id] [-attach a.jpg,b.jpg]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if err := cfg.ValidateForClient(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	cookies, err := cfg.Transport.LoadCookies()
	if err != nil {
		logger.Fatal("Failed to load cookies", zap.Error(err))
	}

	tcfg := transport.DefaultConfig()
	tcfg.Timeout = cfg.Transport.Timeout
	tcfg.MaxRetries = uint64(cfg.Transport.MaxRetries)
	if cfg.Transport.UserAgent != "" {
		tcfg.UserAgent = cfg.Transport.UserAgent
	}
	client, err := transport.NewClient(&transport.Session{
		UserID:  cfg.Transport.UserID,
		DTSG:    cfg.Transport.DTSG,
		Cookies: cookies,
	}, tcfg, logger)
	if err != nil {
		logger.Fatal("Failed to build transport", zap.Error(err))
	}

	svc := services.NewCommentService(client, &services.CommentServiceConfig{
		ActorID:        cfg.Graph.ActorID,
		GraphURL:       cfg.Graph.GraphURL,
		UploadURL:      cfg.Graph.UploadURL,
		FeedLocation:   cfg.Graph.FeedLocation,
		FeedbackSource: cfg.Graph.FeedbackSource,
		Scale:          cfg.Graph.Scale,
	}, logger)

	message, closeAll, err := buildMessage(*body, *link, *sticker, *files)
	if err != nil {
		logger.Fatal("Failed to build message", zap.Error(err))
	}
	defer closeAll()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := svc.CreateComment(ctx, &services.CreateCommentRequest{
		Message:          message,
		PostID:           *postID,
		ReplyToCommentID: *replyTo,
	})
	if err != nil {
		logger.Fatal("Comment creation failed", zap.Error(err))
	}

	fmt.Printf("comment %s created (%d total)\n%s\n", result.ID, result.Count, result.URL)
}

// buildMessage assembles the message input, opening any attachment files.
func buildMessage(body, link string, sticker int64, files string) (models.Message, func(), error) {
	if link == "" && sticker == 0 && files == "" {
		return models.Text(body), func() {}, nil
	}

	input := &models.MessageInput{
		Body:    body,
		URL:     link,
		Sticker: sticker,
	}

	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	if files != "" {
		for _, path := range strings.Split(files, ",") {
			f, err := os.Open(strings.TrimSpace(path))
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			opened = append(opened, f)
			input.Attachments = append(input.Attachments, f)
		}
	}
	return input, closeAll, nil
}
