// Command goidentity-loadtest measures access-token verification,
// authorization and refresh rotation against an in-memory engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/permission"
	"github.com/MrEthical07/goIdentity/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "L0ad!test-password"

type account struct {
	userID  string
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		users       = flag.Int("users", 500, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address for the authorization cache; empty uses REDIS_ADDR or miniredis")
		noCache     = flag.Bool("no-cache", false, "disable the authorization cache")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := goIdentity.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("loadtest-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("loadtest-refresh-secret-0123456789abcdef")
	// Seeding hashes one password per account; keep Argon2id at its floor.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	store := memory.New()
	builder := goIdentity.New().WithConfig(cfg).WithStore(store)

	if !*noCache {
		client, cleanup, err := openRedis(*redisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()
	if err := engine.SeedDefaults(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d accounts...\n", *users)
	startSeed := time.Now()
	accounts := make([]*account, *users)
	for i := range accounts {
		acct, err := seedAccount(ctx, engine, store, i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed account %d: %v\n", i, err)
			os.Exit(1)
		}
		accounts[i] = acct
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	verifyStats := runPhase(accounts, *ops, *concurrency, func(a *account) error {
		_, err := engine.VerifyAccessToken(ctx, a.access)
		return err
	})
	authzStats := runPhase(accounts, *ops, *concurrency, func(a *account) error {
		p, err := engine.VerifyAccessToken(ctx, a.access)
		if err != nil {
			return err
		}
		return engine.Authorize(ctx, p, permission.UpdateUser)
	})
	refreshStats := runPhase(accounts, *ops, *concurrency, func(a *account) error {
		a.mu.Lock()
		defer a.mu.Unlock()
		pair, err := engine.Refresh(ctx, a.refresh)
		if err != nil {
			return err
		}
		a.access, a.refresh = pair.AccessToken, pair.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	printStats("verify", verifyStats)
	printStats("authorize", authzStats)
	printStats("refresh", refreshStats)
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// seedAccount registers, verifies and logs in one account. Every tenth
// account is an administrator so authorization sees both outcomes.
func seedAccount(ctx context.Context, engine *goIdentity.Engine, store *memory.Store, i int) (*account, error) {
	email := fmt.Sprintf("load-%d@example.com", i)
	userID, err := engine.Register(ctx, goIdentity.RegisterRequest{Email: email, Password: loadPassword})
	if err != nil {
		return nil, err
	}
	u, err := store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := engine.VerifyOTP(ctx, userID, u.OTPCode); err != nil {
		return nil, err
	}
	if i%10 == 0 {
		if err := engine.AssignRole(ctx, userID, goIdentity.RoleAdmin); err != nil {
			return nil, err
		}
	}
	res, err := engine.Login(ctx, email, loadPassword)
	if err != nil {
		return nil, err
	}
	return &account{userID: userID, access: res.Tokens.AccessToken, refresh: res.Tokens.RefreshToken}, nil
}

func runPhase(accounts []*account, ops, concurrency int, op func(*account) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				a := accounts[r.Intn(len(accounts))]
				t0 := time.Now()
				err := op(a)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

// printStats reports authorize failures as denials: only every tenth
// account holds UPDATE_USER.
func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
