package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"captioner/internal"
	"captioner/internal/captions"
	"captioner/internal/form"
)

func main() {
	var (
		server      = flag.String("server", "http://localhost:5001", "Caption server base URL")
		image       = flag.String("image", "", "Path to the image to caption")
		platform    = flag.String("platform", "", "instagram, linkedin or twitter")
		length      = flag.String("length", "", "short, medium or long")
		tone        = flag.String("tone", "", "casual, professional, humorous or inspirational")
		description = flag.String("description", "", "Optional image description")
		session     = flag.String("session", "", "Value of the "+internal.SessionName+" cookie when login is required")
		timeout     = flag.Duration("timeout", 2*time.Minute, "Request timeout")
		regenerate  = flag.Int("regenerate", 0, "Number of extra generations with the same inputs")
	)
	flag.Parse()

	submitter, err := form.NewHTTPSubmitter(*server, *timeout)
	if err != nil {
		slog.Error("Failed to create client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *session != "" {
		submitter.SetSessionCookie(internal.SessionName, *session)
	}

	f := form.New(submitter)
	if *image != "" {
		data, err := os.ReadFile(*image)
		if err != nil {
			slog.Error("Failed to read image", slog.String("path", *image), slog.String("error", err.Error()))
			os.Exit(1)
		}
		f.SetImage(filepath.Base(*image), data)
	}
	f.SetPlatform(captions.Platform(*platform))
	f.SetLength(captions.Length(*length))
	f.SetTone(captions.Tone(*tone))
	f.SetDescription(*description)

	ctx := context.Background()

	if err := f.Submit(ctx); errors.Is(err, form.ErrNotReady) {
		fmt.Fprintln(os.Stderr, "an image, a platform, a length and a tone are required")
		flag.Usage()
		os.Exit(2)
	}
	render(f.View())

	for i := 0; i < *regenerate; i++ {
		f.Regenerate(ctx)
		render(f.View())
	}

	if f.View().State == form.Failed {
		os.Exit(1)
	}
}

func render(v form.View) {
	if v.Notice != "" {
		fmt.Fprintln(os.Stderr, v.Notice)
		if v.LoginRequired {
			fmt.Fprintln(os.Stderr, "Sign in through /auth/google in a browser and pass the session cookie with -session.")
		}
	}
	if v.Result == nil {
		return
	}

	fmt.Println(v.Result.Caption)
	fmt.Println()
	fmt.Println(strings.Join(v.Result.Hashtags, " "))
	for _, tip := range v.Result.Tips {
		fmt.Printf("- %s\n", tip)
	}
	fmt.Println()
}
