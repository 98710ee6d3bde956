package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// stubFetcher returns canned JSON per URL substring, recording every URL it
// was asked for.
type stubFetcher struct {
	// responses maps a URL substring to the raw JSON returned for it.
	responses map[string]string
	// err, when set, fails every call.
	err error

	urls   []string
	bodies []string
}

func (s *stubFetcher) GetJSON(_ context.Context, url string, out any) error {
	s.urls = append(s.urls, url)
	return s.respond(url, out)
}

func (s *stubFetcher) PostJSON(_ context.Context, url, _, body string, out any) error {
	s.urls = append(s.urls, url)
	s.bodies = append(s.bodies, body)
	return s.respond(url, out)
}

func (s *stubFetcher) respond(url string, out any) error {
	if s.err != nil {
		return s.err
	}
	for substr, raw := range s.responses {
		if substr == "" || strings.Contains(url, substr) {
			return json.Unmarshal([]byte(raw), out)
		}
	}
	return eris.Errorf("stub: no response for %s", url)
}
