package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	flag "github.com/spf13/pflag"
)

type loginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      int64  `json:"user_id"`
	Nickname    string `json:"nickname"`
}

// login trades telegram init data for an access token. Against a server in
// debug mode the init data does not need a valid hash.
func login(server, initData string) (*loginResponse, error) {
	req, err := http.NewRequest(http.MethodPost, server+"/api/v1/auth/telegram", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Telegram "+initData)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed: %s: %s", resp.Status, body)
	}

	var out loginResponse
	if err = json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func debugInitData(telegramID int64) string {
	return url.Values{
		"auth_date": {"1700000000"},
		"user":      {fmt.Sprintf(`{"id":%d,"username":"wsclient"}`, telegramID)},
	}.Encode()
}

func main() {
	server := flag.String("server", "http://localhost:8080", "server base url")
	initData := flag.String("init-data", "", "telegram init data, generated for --telegram-id when empty")
	telegramID := flag.Int64("telegram-id", 5060715466, "telegram user id used for generated init data")
	flag.Parse()

	if *initData == "" {
		*initData = debugInitData(*telegramID)
	}

	session, err := login(*server, *initData)
	if err != nil {
		log.Fatal("login: ", err)
	}
	log.Printf("Logged in as %s (user %d)", session.Nickname, session.UserID)

	wsURL := "ws" + strings.TrimPrefix(*server, "http") + "/api/v1/notifications/ws"
	header := http.Header{}
	header.Add("Authorization", "Bearer "+session.AccessToken)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		log.Fatal("dial: ", err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	messageQueue := make(chan []byte)

	go func() {
		defer close(messageQueue)
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				log.Println("read error:", err)
				return
			}

			messageQueue <- p
		}
	}()

	for {
		select {
		case message, ok := <-messageQueue:
			if !ok {
				return
			}
			var pretty any
			if err := json.Unmarshal(message, &pretty); err == nil {
				message, _ = json.MarshalIndent(pretty, "", "  ")
			}
			log.Printf("Received:\n%s\n", message)
		case <-interrupt:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
