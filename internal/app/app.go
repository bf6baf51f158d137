package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"github.com/abarreto/stagevote/internal/auth"
	"github.com/abarreto/stagevote/internal/bus"
	"github.com/abarreto/stagevote/internal/fingerprint"
	"github.com/abarreto/stagevote/internal/handlers"
	"github.com/abarreto/stagevote/internal/livesync"
	"github.com/abarreto/stagevote/internal/logger"
	"github.com/abarreto/stagevote/internal/models"
	"github.com/abarreto/stagevote/internal/notify"
	"github.com/abarreto/stagevote/internal/repository"
	"github.com/abarreto/stagevote/internal/reveal"
	"github.com/abarreto/stagevote/internal/services"
	"github.com/abarreto/stagevote/internal/websocket"
)

// App holds all application dependencies
type App struct {
	log      logger.Logger
	handlers *handlers.Handlers
	repo     *repository.Repository
	hub      *websocket.Hub
	cancel   context.CancelFunc
}

// New creates and initializes a new application instance
func New(log logger.Logger, dbPath, fingerprintSalt, sessionID string, operatorAuth *auth.Auth) (*App, error) {
	repo, err := repository.New(dbPath)
	if err != nil {
		return nil, err
	}

	// Every write to the repository publishes a row snapshot on the feed;
	// mirrors, the websocket bridge, and the reveal watcher all consume it
	feed := bus.NewMemory(log)
	repo.SetFeed(feed)

	ctx, cancel := context.WithCancel(context.Background())
	tracker := livesync.NewTracker(ctx, log, feed, repo)

	hub := websocket.New(log, tracker)
	hub.Start()
	hub.BridgeFeed(feed)

	clock := clockwork.NewRealClock()
	dispatch := notify.NewAsync(log, hub)

	showService := services.NewShowService(log, repo, clock, dispatch)
	voteService := services.NewVoteService(log, repo)
	candidateService := services.NewCandidateService(log, repo)
	settingsService := services.NewSettingsService(log, repo)

	go watchReveals(ctx, log, feed, repo, clock, hub)

	h := handlers.New(
		showService,
		voteService,
		candidateService,
		settingsService,
		operatorAuth,
		hub,
		tracker,
		fingerprint.NewCookieProvider(fingerprintSalt),
		log,
		sessionID,
	)

	return &App{
		log:      log,
		handlers: h,
		repo:     repo,
		hub:      hub,
		cancel:   cancel,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close performs graceful shutdown of app resources
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.repo != nil {
		a.repo.Close()
	}
}

// Run starts the HTTP server
func (a *App) Run(addr string) error {
	// Set default base URL if not configured, using detected LAN IP
	ip := getPreferredIP(realNetworkProvider{})
	baseURL := fmt.Sprintf("http://%s%s", ip, addr)
	a.setDefaultBaseURL(baseURL)

	a.log.Info("Server starting", "url", baseURL)
	a.log.Info("Control room URL", "url", baseURL+"/control")
	return http.ListenAndServe(addr, a.Router())
}

// setDefaultBaseURL sets the base URL setting if not already configured
// or if the current value uses localhost (useless inside a QR code)
func (a *App) setDefaultBaseURL(baseURL string) {
	ctx := context.Background()
	existing, _ := a.repo.GetSetting(ctx, "base_url")

	needsUpdate := existing == "" || strings.Contains(existing, "localhost")
	if needsUpdate {
		if err := a.repo.SetSetting(ctx, "base_url", baseURL); err != nil {
			a.log.Warn("Failed to set default base_url", "error", err)
		} else {
			a.log.Info("Default base URL set", "url", baseURL)
		}
	}
}

// revealPool is the read side the reveal watcher needs to assemble the
// photo carousel
type revealPool interface {
	ListCandidatesByCategory(ctx context.Context, category models.Category) ([]models.Candidate, error)
	ListFinalists(ctx context.Context) ([]models.Candidate, error)
}

// watchReveals follows the event feed and, when a winner appears on a row
// that had none, drives the countdown-and-carousel sequence over the hub
// so every connected device animates in step
func watchReveals(ctx context.Context, log logger.Logger, feed bus.Feed, pool revealPool, clock clockwork.Clock, hub *websocket.Hub) {
	sub := feed.Subscribe(bus.TableLiveEvents, bus.KeyAll)
	defer sub.Cancel()

	var mu sync.Mutex
	running := make(map[int]bool)

	for {
		select {
		case <-ctx.Done():
			return
		case notice, ok := <-sub.C:
			if !ok {
				return
			}
			event, ok := notice.Payload.(*models.LiveEvent)
			if !ok || event == nil || event.WinnerCandidateID == nil {
				continue
			}

			mu.Lock()
			if running[event.ID] {
				mu.Unlock()
				continue
			}
			running[event.ID] = true
			mu.Unlock()

			go func(event models.LiveEvent) {
				if err := runReveal(ctx, pool, clock, hub, event); err != nil && ctx.Err() == nil {
					log.Warn("Reveal sequence failed", "event_id", event.ID, "error", err)
				}
			}(*event)
		}
	}
}

// runReveal assembles the carousel pool and runs one sequencer for the hub
func runReveal(ctx context.Context, pool revealPool, clock clockwork.Clock, hub *websocket.Hub, event models.LiveEvent) error {
	var candidates []models.Candidate
	var err error
	if event.CurrentCategory != nil {
		candidates, err = pool.ListCandidatesByCategory(ctx, *event.CurrentCategory)
	} else {
		candidates, err = pool.ListFinalists(ctx)
	}
	if err != nil {
		return err
	}

	eventID := event.ID
	seq := reveal.NewSequencer(clock, candidates, *event.WinnerCandidateID, false, reveal.Hooks{
		OnCount: func(remaining int) {
			hub.BroadcastEvent(eventID, "reveal_count", map[string]int{"remaining": remaining})
		},
		OnCycle: func(index int) {
			hub.BroadcastEvent(eventID, "reveal_cycle", map[string]int{"index": index})
		},
		OnLock: func(c models.Candidate) {
			hub.BroadcastEvent(eventID, "reveal_lock", c)
		},
		OnRevealed: func(c models.Candidate) {
			hub.BroadcastEvent(eventID, "reveal_done", c)
		},
	})
	return seq.Run(ctx)
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IP address for LAN access.
// Prefers private network addresses (192.168.x.x, 10.x.x.x, 172.16-31.x.x).
// Falls back to localhost if no suitable address is found.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP

	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			// Only consider IPv4 addresses
			if ip == nil || ip.To4() == nil {
				continue
			}

			if ip.IsLoopback() {
				continue
			}

			candidates = append(candidates, ip)
		}
	}

	// Prefer private network addresses
	for _, ip := range candidates {
		ipStr := ip.String()
		if strings.HasPrefix(ipStr, "192.168.") ||
			strings.HasPrefix(ipStr, "10.") ||
			isPrivate172(ip) {
			return ipStr
		}
	}

	// Fall back to any non-loopback if no private address found
	if len(candidates) > 0 {
		return candidates[0].String()
	}

	return "localhost"
}

// isPrivate172 checks if IP is in 172.16.0.0/12 range
func isPrivate172(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
	}
	return false
}
