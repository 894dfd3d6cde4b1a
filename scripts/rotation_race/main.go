package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

type loginData struct {
	User struct {
		UserNo int64 `json:"userNo"`
	} `json:"user"`
	AccessToken string `json:"accessToken"`
}

type attempt struct {
	Index    int
	Status   int
	Code     string
	Duration time.Duration
	Error    error
}

func main() {
	var (
		base       string
		email      string
		password   string
		cookieName string
		workers    int
		timeout    time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "Auth API base URL")
	flag.StringVar(&email, "email", "", "Login email")
	flag.StringVar(&password, "password", "", "Login password")
	flag.StringVar(&cookieName, "cookie", "refreshToken", "Refresh token cookie name")
	flag.IntVar(&workers, "n", 10, "Concurrent /token calls")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	if email == "" || password == "" {
		log.Fatal("email and password are required")
	}
	if workers < 2 {
		log.Fatal("n must be at least 2")
	}

	client := &http.Client{Timeout: timeout}
	base = strings.TrimRight(base, "/")

	refresh, userNo, err := login(client, base, email, password, cookieName)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	results := race(client, base, refresh, cookieName, userNo, workers)
	printReport(results)

	winners := 0
	for _, res := range results {
		if res.Status == http.StatusOK {
			winners++
		}
	}
	fmt.Printf("Winners: %d, Losers: %d\n", winners, len(results)-winners)
	if winners != 1 {
		os.Exit(1)
	}
}

func login(client *http.Client, base, email, password, cookieName string) (string, int64, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", 0, err
	}
	resp, err := client.Post(base+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	env, err := decode(resp.Body)
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("status %d: %s", resp.StatusCode, env.Error.Message)
	}

	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", 0, err
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == cookieName && cookie.Value != "" {
			return cookie.Value, data.User.UserNo, nil
		}
	}
	return "", 0, errors.New("login response carried no refresh cookie")
}

// race fires n rotations with the same refresh token released at the same instant.
func race(client *http.Client, base, refresh, cookieName string, userNo int64, n int) []attempt {
	payload, _ := json.Marshal(map[string]int64{"userNo": userNo})

	results := make([]attempt, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			results[idx] = rotate(client, base, refresh, cookieName, payload)
			results[idx].Index = idx
		}(i)
	}
	close(start)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

func rotate(client *http.Client, base, refresh, cookieName string, payload []byte) attempt {
	req, err := http.NewRequest(http.MethodPost, base+"/token", bytes.NewReader(payload))
	if err != nil {
		return attempt{Error: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: cookieName, Value: refresh})

	began := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return attempt{Error: err, Duration: time.Since(began)}
	}
	defer resp.Body.Close()

	res := attempt{Status: resp.StatusCode, Duration: time.Since(began)}
	env, err := decode(resp.Body)
	if err != nil {
		res.Error = err
		return res
	}
	res.Code = env.Error.Code
	return res
}

func decode(r io.Reader) (*envelope, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if env.Error == nil {
		env.Error = &apiError{}
	}
	return &env, nil
}

func printReport(results []attempt) {
	fmt.Println("Rotation Race Report")
	fmt.Println("====================")
	for _, res := range results {
		if res.Error != nil {
			fmt.Printf("[#%02d] ERROR %v (%s)\n", res.Index, res.Error, res.Duration)
			continue
		}
		fmt.Printf("[#%02d] %d %s (%s)\n", res.Index, res.Status, res.Code, res.Duration)
	}
}
