package main

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/urfave/cli/v2"
)

const tokenLifetime = 5 * time.Minute

// flags
var (
	roundIdFlag = &cli.Uint64Flag{
		Name:     "id",
		Usage:    "the round id",
		Required: true,
	}
	deadlineFlag = &cli.DurationFlag{
		Name:     "duration",
		Usage:    "how long the round accepts entries, eg. 24h",
		Required: true,
	}
	descriptionFlag = &cli.StringFlag{
		Name:  "description",
		Usage: "the round description, at most 32 bytes",
	}
	toFlag = &cli.StringFlag{
		Name:     "to",
		Usage:    "the address receiving the round treasury",
		Required: true,
	}
	tokenFlag = &cli.StringFlag{
		Name:     "token",
		Usage:    "the token address",
		Required: true,
	}
	disallowFlag = &cli.BoolFlag{
		Name:  "disallow",
		Usage: "revoke the token instead of allowing it",
	}
)

// commands
var (
	infoCmd = &cli.Command{
		Name:   "info",
		Usage:  "Get info about the giveaway engine",
		Action: infoAction,
	}
	roundCmd = &cli.Command{
		Name:  "round",
		Usage: "Manage giveaway rounds",
		Subcommands: append(
			cli.Commands{},
			roundCreateCmd,
			roundListCmd,
			roundCloseEmptyCmd,
			roundRetryPrizesCmd,
			roundWithdrawCmd,
		),
	}
	roundCreateCmd = &cli.Command{
		Name:   "create",
		Usage:  "Create a new round",
		Action: roundCreateAction,
		Flags:  []cli.Flag{deadlineFlag, descriptionFlag},
	}
	roundListCmd = &cli.Command{
		Name:   "list",
		Usage:  "List all rounds",
		Action: roundListAction,
	}
	roundCloseEmptyCmd = &cli.Command{
		Name:   "close-empty",
		Usage:  "Settle an expired round without entries",
		Action: roundCloseEmptyAction,
		Flags:  []cli.Flag{roundIdFlag},
	}
	roundRetryPrizesCmd = &cli.Command{
		Name:   "retry-prizes",
		Usage:  "Retry undelivered prizes of a settled round",
		Action: roundRetryPrizesAction,
		Flags:  []cli.Flag{roundIdFlag},
	}
	roundWithdrawCmd = &cli.Command{
		Name:   "withdraw",
		Usage:  "Withdraw the treasury of a settled round",
		Action: roundWithdrawAction,
		Flags:  []cli.Flag{roundIdFlag, toFlag},
	}
	tokenCmd = &cli.Command{
		Name:  "token",
		Usage: "Manage the tokens accepted as entry deposits",
		Subcommands: append(
			cli.Commands{},
			tokenSetCmd,
			tokenListCmd,
		),
	}
	tokenSetCmd = &cli.Command{
		Name:   "set",
		Usage:  "Allow or revoke a token",
		Action: tokenSetAction,
		Flags:  []cli.Flag{tokenFlag, disallowFlag},
	}
	tokenListCmd = &cli.Command{
		Name:   "list",
		Usage:  "List allowed tokens",
		Action: tokenListAction,
	}
)

func infoAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/info", ctx.String("url"))
	info, err := get[json.RawMessage](ctx, url, "", false)
	if err != nil {
		return err
	}
	return printJSON(info)
}

func roundCreateAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/round", ctx.String("url"))
	deadline := time.Now().Add(ctx.Duration("duration")).Unix()
	body, err := json.Marshal(map[string]interface{}{
		"deadline":    deadline,
		"description": ctx.String("description"),
	})
	if err != nil {
		return err
	}

	id, err := post[uint64](ctx, url, string(body), "id")
	if err != nil {
		return err
	}

	fmt.Printf("created round %d, deadline %s\n", id, time.Unix(deadline, 0).Format(time.RFC3339))
	return nil
}

func roundListAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/rounds", ctx.String("url"))
	rounds, err := get[json.RawMessage](ctx, url, "rounds", true)
	if err != nil {
		return err
	}
	return printJSON(rounds)
}

func roundCloseEmptyAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/round/%d/close-empty", ctx.String("url"), ctx.Uint64("id"))
	if _, err := post[struct{}](ctx, url, "{}", ""); err != nil {
		return err
	}

	fmt.Printf("round %d settled without winners\n", ctx.Uint64("id"))
	return nil
}

func roundRetryPrizesAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/round/%d/retry-prizes", ctx.String("url"), ctx.Uint64("id"))
	deliveries, err := post[json.RawMessage](ctx, url, "{}", "deliveries")
	if err != nil {
		return err
	}
	return printJSON(deliveries)
}

func roundWithdrawAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/round/%d/withdraw", ctx.String("url"), ctx.Uint64("id"))
	body := fmt.Sprintf(`{"to": "%s"}`, ctx.String("to"))
	sent, err := post[map[string]uint64](ctx, url, body, "sent")
	if err != nil {
		return err
	}

	for token, amount := range sent {
		fmt.Printf("sent %d of %s to %s\n", amount, token, ctx.String("to"))
	}
	return nil
}

func tokenSetAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/token", ctx.String("url"))
	allowed := !ctx.Bool("disallow")
	body := fmt.Sprintf(`{"token": "%s", "allowed": %t}`, ctx.String("token"), allowed)
	if _, err := post[struct{}](ctx, url, body, ""); err != nil {
		return err
	}

	fmt.Printf("token %s allowed: %t\n", ctx.String("token"), allowed)
	return nil
}

func tokenListAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/tokens", ctx.String("url"))
	tokens, err := get[json.RawMessage](ctx, url, "tokens", true)
	if err != nil {
		return err
	}
	return printJSON(tokens)
}

func post[T any](ctx *cli.Context, url, body, key string) (result T, err error) {
	req, err := http.NewRequest("POST", url, strings.NewReader(body))
	if err != nil {
		return
	}
	token, err := bearerToken(ctx)
	if err != nil {
		return
	}
	req.Header.Add("Authorization", "Bearer "+token)

	buf, err := do(ctx, req)
	if err != nil {
		return
	}
	if key == "" {
		return
	}
	res := make(map[string]T)
	if err = json.Unmarshal(buf, &res); err != nil {
		return
	}

	result = res[key]
	return
}

// get returns the whole response body when key is empty.
func get[T any](ctx *cli.Context, url, key string, withAuth bool) (result T, err error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return
	}
	if withAuth {
		var token string
		if token, err = bearerToken(ctx); err != nil {
			return
		}
		req.Header.Add("Authorization", "Bearer "+token)
	}

	buf, err := do(ctx, req)
	if err != nil {
		return
	}
	if key == "" {
		err = json.Unmarshal(buf, &result)
		return
	}
	res := make(map[string]T)
	if err = json.Unmarshal(buf, &res); err != nil {
		return
	}

	result = res[key]
	return
}

func do(ctx *cli.Context, req *http.Request) ([]byte, error) {
	tlsCertPath := ctx.String("tls-cert-path")
	if strings.Contains(req.URL.String(), "http://") {
		tlsCertPath = ""
	}
	tlsConfig, err := getTLSConfig(tlsCertPath)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed: %s", string(buf))
	}
	return buf, nil
}

func bearerToken(ctx *cli.Context) (string, error) {
	secret := ctx.String("jwt-secret")
	if len(secret) <= 0 {
		return "", fmt.Errorf("missing jwt secret")
	}
	caller := ctx.String("caller")
	if len(caller) <= 0 {
		return "", fmt.Errorf("missing caller address")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   caller,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
	})
	return token.SignedString([]byte(secret))
}

func getTLSConfig(path string) (*tls.Config, error) {
	if len(path) <= 0 {
		return nil, nil
	}
	var buf []byte
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	caCertPool := x509.NewCertPool()
	if ok := caCertPool.AppendCertsFromPEM(buf); !ok {
		return nil, fmt.Errorf("failed to parse tls cert")
	}

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))
	return nil
}
