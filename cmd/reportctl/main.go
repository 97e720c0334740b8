package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	apiclient "github.com/splax/reportdesk/pkg/api/client"
)

const defaultAPIBase = "http://localhost:3000"

type cliConfig struct {
	APIBaseURL   string `json:"api_base_url"`
	SessionToken string `json:"session_token"`
}

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "signup":
		err = commandCredentials("signup", args)
	case "signin":
		err = commandCredentials("signin", args)
	case "signout":
		err = commandSignout()
	case "whoami":
		err = commandWhoami()
	case "report":
		err = commandReport(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandCredentials(name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default "+defaultAPIBase+")")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret := *password
	if secret == "" {
		fmt.Print("Password: ")
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		secret = string(bytes)
	}

	cfg, _ := loadConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var sess apiclient.Session
	if name == "signup" {
		sess, err = client.Signup(ctx, *email, secret)
	} else {
		sess, err = client.Signin(ctx, *email, secret)
	}
	if err != nil {
		return err
	}
	cfg.SessionToken = sess.Token
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("signed in as %s (%s)\n", sess.User.Email, sess.User.ID)
	return nil
}

func commandSignout() error {
	cfg, client, err := sessionClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := client.Signout(ctx, cfg.SessionToken); err != nil {
		return err
	}
	cfg.SessionToken = ""
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("signed out")
	return nil
}

func commandWhoami() error {
	cfg, client, err := sessionClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	user, err := client.Whoami(ctx, cfg.SessionToken)
	if err != nil {
		return err
	}
	if user == nil {
		fmt.Println("session has no user")
		return nil
	}
	fmt.Printf("%s (%s)\n", user.Email, user.ID)
	return nil
}

func commandReport(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: reportctl report [create|get|approve|reject]")
	}
	sub := args[0]
	switch sub {
	case "create":
		return reportCreate(args[1:])
	case "get":
		return reportGet(args[1:])
	case "approve":
		return reportDecide(args[1:], true)
	case "reject":
		return reportDecide(args[1:], false)
	default:
		return fmt.Errorf("unknown report command: %s", sub)
	}
}

func reportCreate(args []string) error {
	fs := flag.NewFlagSet("report create", flag.ExitOnError)
	in := apiclient.ReportInput{}
	fs.IntVar(&in.Price, "price", 0, "Asking price")
	fs.StringVar(&in.Make, "make", "", "Vehicle make")
	fs.StringVar(&in.Model, "model", "", "Vehicle model")
	fs.IntVar(&in.Year, "year", 0, "Model year")
	fs.IntVar(&in.Mileage, "mileage", 0, "Mileage")
	fs.Float64Var(&in.Lng, "lng", 0, "Longitude")
	fs.Float64Var(&in.Lat, "lat", 0, "Latitude")
	fs.Parse(args)

	cfg, client, err := sessionClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	report, err := client.CreateReport(ctx, cfg.SessionToken, in)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func reportGet(args []string) error {
	fs := flag.NewFlagSet("report get", flag.ExitOnError)
	id := fs.String("id", "", "Report identifier")
	fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}

	cfg, client, err := sessionClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	report, err := client.GetReport(ctx, cfg.SessionToken, *id)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func reportDecide(args []string, approved bool) error {
	fs := flag.NewFlagSet("report approval", flag.ExitOnError)
	id := fs.String("id", "", "Report identifier")
	fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}

	cfg, client, err := sessionClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	report, err := client.SetApproval(ctx, cfg.SessionToken, *id, approved)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func printReport(r apiclient.Report) {
	fmt.Printf("%s  %d %s %s  price=%d mileage=%d  [%s]\n", r.ID, r.Year, r.Make, r.Model, r.Price, r.Mileage, r.State())
}

func sessionClient() (cliConfig, *apiclient.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cliConfig{}, nil, err
	}
	if strings.TrimSpace(cfg.SessionToken) == "" {
		return cliConfig{}, nil, errors.New("please sign in first using 'reportctl signin'")
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return cliConfig{}, nil, err
	}
	return cfg, client, nil
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: defaultAPIBase}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBase
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "reportdesk", "config.json"), nil
}

func printUsage() {
	fmt.Printf("reportctl %s\n\n", buildVersion)
	fmt.Print(`Usage:
	reportctl signup --email user@example.com [--password secret] [--api http://localhost:3000]
	reportctl signin --email user@example.com [--password secret] [--api http://localhost:3000]
	reportctl signout
	reportctl whoami
	reportctl report create --make honda --model civic --year 2019 --price 12000 --mileage 30000 --lng -0.12 --lat 51.5
	reportctl report get --id <report-id>
	reportctl report approve --id <report-id>
	reportctl report reject --id <report-id>
	reportctl version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
