package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	"kasku/internal/session"
)

const defaultServer = "http://localhost:8080"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	server string
	store  session.Store
	client *http.Client
	stdin  io.Reader
	stdout io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("kasctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	server := fs.String("server", defaultServer, "Server base URL")
	sessionPath := fs.String("session", "", "Session file path")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *sessionPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolve config dir: %w", err)
		}
		*sessionPath = filepath.Join(dir, "kasku", "session.json")
	}

	a := &app{
		server: strings.TrimRight(*server, "/"),
		store:  session.NewFileStore(*sessionPath),
		client: &http.Client{Timeout: 30 * time.Second},
		stdin:  stdin,
		stdout: stdout,
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stdout, "Usage: kasctl [-server URL] [-session path] <login|logout|whoami|list|summary|export>")
		fs.PrintDefaults()
		return fmt.Errorf("missing command")
	}

	switch rest[0] {
	case "login":
		return a.login(rest[1:])
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami()
	case "list":
		return a.list(rest[1:])
	case "summary":
		return a.summary()
	case "export":
		return a.export(rest[1:])
	default:
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func (a *app) login(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	identifier := fs.String("user", "", "NIS or username")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *identifier == "" {
		return fmt.Errorf("login requires -user")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(a.stdout, "Password: ")
		var err error
		password, err = readPassword(a.stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(a.stdout)
	}

	payload, err := json.Marshal(map[string]string{
		"identifier": *identifier,
		"password":   password,
	})
	if err != nil {
		return err
	}

	resp, err := a.client.Post(a.server+"/api/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	// The user object shares the session's field layout.
	var body struct {
		Token string          `json:"token"`
		User  session.Session `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}

	sess := body.User
	sess.Token = body.Token
	if err := a.store.Establish(sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	fmt.Fprintf(a.stdout, "Logged in as %s (%s)\n", sess.FullName, sess.Role)
	return nil
}

func (a *app) logout() error {
	if err := a.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func (a *app) whoami() error {
	sess, err := a.requireSession()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s (%s)\nNIS: %s\nRole: %s\nPosition: %s\n",
		sess.FullName, sess.Username, sess.NIS, sess.Role, sess.Position)
	return nil
}

func (a *app) list(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	typ := fs.String("type", "", "Filter: income or expense")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := a.requireSession()
	if err != nil {
		return err
	}

	url := a.server + "/api/transactions"
	if *typ != "" {
		url += "?type=" + *typ
	}
	resp, err := a.get(url, sess.Token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	var txs []struct {
		ID          int64   `json:"id"`
		FullName    string  `json:"full_name"`
		Nominal     float64 `json:"nominal"`
		Description string  `json:"description"`
		Type        string  `json:"type"`
		Status      string  `json:"status"`
		CreatedAt   string  `json:"created_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&txs); err != nil {
		return fmt.Errorf("decode transactions: %w", err)
	}

	for _, tx := range txs {
		fmt.Fprintf(a.stdout, "#%d\t%s\t%.0f\t%s\t%s\t%s\n",
			tx.ID, tx.Type, tx.Nominal, tx.Status, tx.FullName, tx.Description)
	}
	return nil
}

func (a *app) summary() error {
	sess, err := a.requireSession()
	if err != nil {
		return err
	}

	resp, err := a.get(a.server+"/api/reports/summary", sess.Token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	var body struct {
		TotalIncome  float64 `json:"total_income"`
		TotalExpense float64 `json:"total_expense"`
		Balance      float64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode summary: %w", err)
	}

	fmt.Fprintf(a.stdout, "Income:  %.0f\nExpense: %.0f\nBalance: %.0f\n",
		body.TotalIncome, body.TotalExpense, body.Balance)
	return nil
}

func (a *app) export(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	typ := fs.String("type", "", "Filter: income or expense")
	out := fs.String("out", "", "Output file (defaults to server-suggested name)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := a.requireSession()
	if err != nil {
		return err
	}

	url := a.server + "/api/reports/export"
	if *typ != "" {
		url += "?type=" + *typ
	}
	resp, err := a.get(url, sess.Token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	name := *out
	if name == "" {
		name = fileNameFromDisposition(resp.Header.Get("Content-Disposition"))
	}
	if name == "" {
		name = "laporan.xlsx"
	}

	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	fmt.Fprintf(a.stdout, "Saved %s\n", name)
	return nil
}

func (a *app) requireSession() (*session.Session, error) {
	sess, err := a.store.Restore()
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("not logged in, run: kasctl login -user <nis or username>")
	}
	return sess, nil
}

func (a *app) get(url, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return a.client.Do(req)
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("server: %s (%s)", body.Error, resp.Status)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}

// fileNameFromDisposition pulls the suggested name out of a
// Content-Disposition attachment header.
func fileNameFromDisposition(header string) string {
	const marker = "filename="
	idx := strings.Index(header, marker)
	if idx < 0 {
		return ""
	}
	name := strings.Trim(header[idx+len(marker):], `"`)
	// Reject anything that looks like a path.
	if name != filepath.Base(name) {
		return ""
	}
	return name
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
