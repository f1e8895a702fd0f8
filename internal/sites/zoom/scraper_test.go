package zoom

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidscrape/internal/browser/browsertest"
	"vidscrape/internal/logger"
	"vidscrape/internal/scraper"
)

func playerPage() map[string]string {
	return map[string]string{
		PasscodeInputSelector:  "",
		PasscodeSubmitSelector: "Watch Recording",
		PlayerSelector:         "",
	}
}

func TestRegistered(t *testing.T) {
	a, err := scraper.NewAdapter("zoom", map[string]string{ParamPasscode: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "zoom", a.Name())
}

func TestUnknownParam(t *testing.T) {
	_, err := New(map[string]string{"user": "me"})
	assert.Error(t, err)
}

func TestAfterPageLoadedWithPasscode(t *testing.T) {
	e := browsertest.New(playerPage())
	a, err := New(map[string]string{ParamPasscode: "s3cret"})
	require.NoError(t, err)

	cfg := scraper.DefaultScrapingConfig()
	require.NoError(t, a.AfterPageLoaded(context.Background(), &cfg, e.Page(), logger.New(false, "")))

	assert.Equal(t, []string{
		"waitForSelector " + PasscodeInputSelector,
		"type " + PasscodeInputSelector,
		"click " + PasscodeSubmitSelector,
		"waitForSelector " + PlayerSelector,
	}, e.CallStrings())
	assert.Equal(t, "s3cret", e.Typed(PasscodeInputSelector))
}

func TestAfterPageLoadedWithoutPasscode(t *testing.T) {
	e := browsertest.New(playerPage())
	a, err := New(nil)
	require.NoError(t, err)

	cfg := scraper.DefaultScrapingConfig()
	require.NoError(t, a.AfterPageLoaded(context.Background(), &cfg, e.Page(), logger.New(false, "")))

	assert.Equal(t, []string{"waitForSelector " + PlayerSelector}, e.CallStrings())
}

func TestAfterPageLoadedSubmitFails(t *testing.T) {
	e := browsertest.New(playerPage())
	e.Errors[browsertest.OpClick] = errors.New("detached")
	a, err := New(map[string]string{ParamPasscode: "s3cret"})
	require.NoError(t, err)

	cfg := scraper.DefaultScrapingConfig()
	err = a.AfterPageLoaded(context.Background(), &cfg, e.Page(), logger.New(false, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to submit passcode")
	assert.Equal(t, 1, e.Count(browsertest.OpWaitForSelector))
}
