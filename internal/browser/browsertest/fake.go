// Package browsertest provides a scripted in-memory browser for tests.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"screener/internal/browser"
)

// Launcher hands out a single scripted Session.
type Launcher struct {
	Session *Session
	OpenErr error
	Opened  int
}

func (l *Launcher) Open(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.OpenErr != nil {
		return nil, l.OpenErr
	}
	l.Opened++
	return l.Session, nil
}

// Session serves markup by URL. A selector is visible when it matches the
// current page. Clicks can be scripted to swap the current page.
type Session struct {
	mu sync.Mutex

	Pages        map[string]string
	NavigateErrs map[string]error
	// OnClick runs after a click on the keyed selector.
	OnClick    map[string]func(s *Session)
	ContentErr error
	EvalErr    error

	Current   string
	Visited   []string
	Clicked   []string
	Filled    map[string]string
	Evaluated []string
	Closed    int
}

func NewSession(pages map[string]string) *Session {
	return &Session{
		Pages:        pages,
		NavigateErrs: map[string]error{},
		OnClick:      map[string]func(*Session){},
		Filled:       map[string]string{},
	}
}

// Show replaces the current page markup.
func (s *Session) Show(html string) {
	s.Current = html
}

func (s *Session) Navigate(ctx context.Context, url string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Visited = append(s.Visited, url)
	if html, ok := s.Pages[url]; ok {
		s.Current = html
	}
	if err := s.NavigateErrs[url]; err != nil {
		return err
	}
	if _, ok := s.Pages[url]; !ok {
		return fmt.Errorf("browsertest: no page scripted for %s", url)
	}
	return nil
}

func (s *Session) WaitVisible(ctx context.Context, selector string, _ time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matches(selector), nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.matches(selector) {
		return fmt.Errorf("browsertest: %s not on page", selector)
	}
	s.Clicked = append(s.Clicked, selector)
	if fn := s.OnClick[selector]; fn != nil {
		fn(s)
	}
	return nil
}

func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.matches(selector) {
		return fmt.Errorf("browsertest: %s not on page", selector)
	}
	s.Filled[selector] = value
	return nil
}

// Evaluate records the expression and answers every script with a page
// height of 3000.
func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Evaluated = append(s.Evaluated, expression)
	if s.EvalErr != nil {
		return s.EvalErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte("3000"), out)
}

func (s *Session) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ContentErr != nil {
		return "", s.ContentErr
	}
	return s.Current, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed++
	return nil
}

func (s *Session) matches(selector string) bool {
	if s.Current == "" {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.Current))
	if err != nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}

// ErrScripted is a generic failure for scripting error paths.
var ErrScripted = errors.New("browsertest: scripted failure")
