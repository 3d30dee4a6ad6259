package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pulseboard/internal/client/actiongw"
	"pulseboard/internal/config"
)

func gatewayFor(t *testing.T, handler http.HandlerFunc) (*actiongw.Client, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	client := &actiongw.Client{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Identities: actiongw.NewIdentityCache(),
		HTTP:       server.Client(),
	}
	return client, server.Close
}

func TestVideoSync_CapturesSnapshot(t *testing.T) {
	gateway, closeFn := gatewayFor(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "YOUTUBE_GET_CHANNEL_STATISTICS") {
			t.Errorf("unexpected action path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"successful":true,"data":{
			"items":[{"statistics":{"viewCount":"12345","subscriberCount":"678"}}]
		}}`)
	})
	defer closeFn()

	repo := newStubRepo()
	svc := &VideoSyncService{
		Gateway:  gateway,
		Repo:     repo,
		Config:   config.YouTubeConfig{ChannelID: "UCabcdefghijklmnopqrstuv"},
		Location: time.UTC,
	}

	outcome := svc.Sync(context.Background(), "run-1")
	if outcome.Status != TaskOK {
		t.Fatalf("outcome=%+v", outcome)
	}
	if len(repo.snapshots) != 1 {
		t.Fatalf("snapshots=%d", len(repo.snapshots))
	}
	snap := repo.snapshots[0]
	if snap.ViewCount != 12345 || snap.SubscriberCount != 678 {
		t.Fatalf("snapshot=%+v", snap)
	}
	if snap.CaptureDate == "" {
		t.Fatalf("capture date not set")
	}
}

func TestVideoSync_ResolvesChannelByHandle(t *testing.T) {
	var statsChannel string
	gateway, closeFn := gatewayFor(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "YOUTUBE_GET_CHANNEL_ID_BY_HANDLE"):
			fmt.Fprint(w, `{"data":{"channel_id":"UC0123456789abcdefghijkl"}}`)
		case strings.Contains(r.URL.Path, "YOUTUBE_GET_CHANNEL_STATISTICS"):
			statsChannel = "called"
			fmt.Fprint(w, `{"data":{"statistics":{"viewCount":10,"subscriberCount":2}}}`)
		default:
			t.Errorf("unexpected action path %s", r.URL.Path)
		}
	})
	defer closeFn()

	repo := newStubRepo()
	svc := &VideoSyncService{
		Gateway:  gateway,
		Repo:     repo,
		Config:   config.YouTubeConfig{ChannelHandle: "@pulse"},
		Location: time.UTC,
	}

	outcome := svc.Sync(context.Background(), "run-1")
	if outcome.Status != TaskOK {
		t.Fatalf("outcome=%+v", outcome)
	}
	if statsChannel != "called" {
		t.Fatalf("statistics never requested")
	}
}

func TestVideoSync_ErrorWhenNoCounts(t *testing.T) {
	gateway, closeFn := gatewayFor(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"items":[{"snippet":{"title":"Channel"}}]}}`)
	})
	defer closeFn()

	svc := &VideoSyncService{
		Gateway:  gateway,
		Repo:     newStubRepo(),
		Config:   config.YouTubeConfig{ChannelID: "UCabcdefghijklmnopqrstuv"},
		Location: time.UTC,
	}

	outcome := svc.Sync(context.Background(), "run-1")
	if outcome.Status != TaskError {
		t.Fatalf("outcome=%+v", outcome)
	}
}

func TestVideoSync_SkipsWithoutAPIKey(t *testing.T) {
	svc := &VideoSyncService{Gateway: &actiongw.Client{}, Repo: newStubRepo()}
	outcome := svc.Sync(context.Background(), "run-1")
	if outcome.Status != TaskSkipped {
		t.Fatalf("outcome=%+v", outcome)
	}
}

func TestClampCount(t *testing.T) {
	if got := clampCount(-5); got != 0 {
		t.Fatalf("got %d", got)
	}
	if got := clampCount(12.9); got != 12 {
		t.Fatalf("got %d", got)
	}
}
