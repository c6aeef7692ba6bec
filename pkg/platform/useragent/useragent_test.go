package useragent

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type DescribeSuite struct {
	suite.Suite
}

func TestDescribeSuite(t *testing.T) {
	suite.Run(t, new(DescribeSuite))
}

func (s *DescribeSuite) TestDescribe() {
	s.Run("empty header is unknown", func() {
		s.Equal("Unknown Client", Describe(""))
	})

	s.Run("chrome on desktop includes browser and OS", func() {
		result := Describe("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		s.Contains(result, "Chrome")
		s.Contains(result, " on ")
		s.Contains(result, "Windows")
	})

	s.Run("firefox on linux includes browser and OS", func() {
		result := Describe("Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
		s.Contains(result, "Firefox")
		s.Contains(result, "Linux")
	})

	s.Run("result never has doubled spaces", func() {
		s.NotContains(Describe("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"), "  ")
	})
}
