// cmd/contactctl/main.go
// contactctl submits the contact form from a terminal, validating locally
// first exactly as the web form does.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dalemusser/contactform/client"
	"github.com/dalemusser/contactform/submission"
	"github.com/dalemusser/contactform/version"
	"github.com/spf13/pflag"
)

const usage = `contactctl - submit the contact form from the command line

Usage:
  contactctl [flags]

Example:
  contactctl --endpoint https://example.com/contact \
    --name "Jane Doe" --email jane@example.com --phone "555-123-4567" \
    --subject "Bulk order" --message - --privacy < message.txt

Flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("contactctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	var (
		endpoint = fs.String("endpoint", "http://localhost:8080/contact", "Contact endpoint URL")
		timeout  = fs.Duration("timeout", 30*time.Second, "Request timeout")
		showVer  = fs.Bool("version", false, "Print version and exit")
		s        submission.Submission
	)
	fs.StringVar(&s.FullName, "name", "", "Full name")
	fs.StringVar(&s.Email, "email", "", "Email address")
	fs.StringVar(&s.Phone, "phone", "", "Phone number")
	fs.StringVar(&s.Company, "company", "", "Company name (optional)")
	fs.StringVar(&s.Subject, "subject", "", "Subject")
	fs.StringVar(&s.Message, "message", "", `Message ("-" reads stdin)`)
	fs.BoolVar(&s.PrivacyAccepted, "privacy", false, "Agree to the privacy policy")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVer {
		fmt.Fprintln(stdout, "contactctl", version.String())
		return 0
	}

	if s.Message == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "contactctl: reading message: %v\n", err)
			return 1
		}
		s.Message = strings.TrimSpace(string(b))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*endpoint, &http.Client{Timeout: *timeout}, client.NewTextView(stdout))
	res := c.Submit(ctx, s)

	switch res.Outcome {
	case client.OutcomeSent:
		return 0
	case client.OutcomeInvalid, client.OutcomeRejected:
		fmt.Fprintln(stderr, "contactctl: please fix the errors above")
		return 1
	case client.OutcomeNetworkError:
		fmt.Fprintf(stderr, "contactctl: %v\n", res.Err)
		return 1
	default:
		return 1
	}
}
