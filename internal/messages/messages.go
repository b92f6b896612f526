package messages

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"sync"
)

// Level - уровень сообщения, совпадает с CSS классом уведомления.
type Level string

// Уровни сообщений.
const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Имя cookie для сообщений, переживающих редирект.
const flashCookieName = "flash"

// Message - сообщение пользователю.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Collector накапливает сообщения одного запроса.
type Collector struct {
	mu       sync.Mutex
	messages []Message
}

// Add добавляет сообщение.
func (c *Collector) Add(level Level, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Level: level, Text: text})
}

// Messages возвращает копию накопленных сообщений.
func (c *Collector) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Drain возвращает накопленные сообщения и очищает список.
func (c *Collector) Drain() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.messages
	c.messages = nil
	return msgs
}

type contextKey string

const collectorKey contextKey = "messages"

// WithCollector возвращает контекст с новым сборщиком сообщений.
func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, collectorKey, c), c
}

// FromContext возвращает сборщик сообщений запроса.
func FromContext(ctx context.Context) (*Collector, bool) {
	c, ok := ctx.Value(collectorKey).(*Collector)
	return c, ok && c != nil
}

// Success добавляет сообщение об успехе.
func Success(ctx context.Context, text string) { add(ctx, LevelSuccess, text) }

// Info добавляет информационное сообщение.
func Info(ctx context.Context, text string) { add(ctx, LevelInfo, text) }

// Warning добавляет предупреждение.
func Warning(ctx context.Context, text string) { add(ctx, LevelWarning, text) }

// Error добавляет сообщение об ошибке.
func Error(ctx context.Context, text string) { add(ctx, LevelError, text) }

func add(ctx context.Context, level Level, text string) {
	c, ok := FromContext(ctx)
	if !ok {
		log.Printf("[Messages] Сборщик сообщений отсутствует, сообщение (%s) потеряно: %s", level, text)
		return
	}
	c.Add(level, text)
}

// Save сохраняет сообщения в cookie, чтобы показать их после редиректа.
func Save(w http.ResponseWriter, msgs []Message) {
	if len(msgs) == 0 {
		return
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		log.Printf("[Messages:Save] Ошибка кодирования сообщений: %v", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Load читает сообщения из cookie и удаляет ее.
func Load(w http.ResponseWriter, r *http.Request) []Message {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		log.Printf("[Messages:Load] Невалидная cookie сообщений: %v", err)
		return nil
	}
	var msgs []Message
	if err = json.Unmarshal(data, &msgs); err != nil {
		log.Printf("[Messages:Load] Ошибка декодирования сообщений: %v", err)
		return nil
	}
	return msgs
}

// Redirect сохраняет сообщения запроса в cookie и перенаправляет пользователя.
func Redirect(w http.ResponseWriter, r *http.Request, url string) {
	if c, ok := FromContext(r.Context()); ok {
		Save(w, c.Drain())
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
