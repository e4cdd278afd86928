package presence

import (
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	r "gopkg.in/redis.v5"
)

const keyPrefix = "status:"

// RedisStore keeps presence in Redis: one JSON value per user under
// status:{userID}, with updates pushed over the pub/sub channel of the same
// name. Online entries carry a TTL so a crashed instance that never ran its
// disconnect hooks cannot leave users online forever; a background loop
// rewrites the value while the user stays online, so the TTL only ever fires
// for processes that died.
type RedisStore struct {
	client *r.Client
	ttl    time.Duration

	mu     sync.Mutex
	online map[string]Status

	done chan struct{}
}

func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := r.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := r.NewClient(opts)
	if err := client.Ping().Err(); err != nil {
		return nil, err
	}

	store := &RedisStore{
		client: client,
		ttl:    ttl,
		online: make(map[string]Status),
		done:   make(chan struct{}),
	}
	go store.refreshLoop()

	return store, nil
}

func (s *RedisStore) Close() error {
	close(s.done)
	return s.client.Close()
}

func (s *RedisStore) SetStatus(userID string, status Status) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	s.trackOnline(userID, status)

	expiration := time.Duration(0)
	if status.Online {
		expiration = s.ttl
	}
	if err := s.client.Set(keyPrefix+userID, payload, expiration).Err(); err != nil {
		return err
	}

	return s.client.Publish(keyPrefix+userID, string(payload)).Err()
}

func (s *RedisStore) GetStatus(userID string) (Status, error) {
	payload, err := s.client.Get(keyPrefix + userID).Bytes()
	if err == r.Nil {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}

	var status Status
	if err := json.Unmarshal(payload, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// trackOnline records which users this process considers online, so the
// refresh loop knows whose keys to keep alive.
func (s *RedisStore) trackOnline(userID string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status.Online {
		s.online[userID] = status
	} else {
		delete(s.online, userID)
	}
}

func (s *RedisStore) onlineSnapshot() map[string]Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]Status, len(s.online))
	for userID, status := range s.online {
		snapshot[userID] = status
	}
	return snapshot
}

// refreshLoop rewrites every locally-online value with a fresh TTL at a
// fraction of the expiry, without publishing: subscribers only hear real
// transitions, and a connected user never reads as expired.
func (s *RedisStore) refreshLoop() {
	interval := s.ttl / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			for userID, status := range s.onlineSnapshot() {
				payload, err := json.Marshal(status)
				if err != nil {
					continue
				}
				if err := s.client.Set(keyPrefix+userID, payload, s.ttl).Err(); err != nil {
					log.WithError(err).WithField("user_id", userID).
						Warn("failed to refresh presence TTL")
				}
			}
		}
	}
}

func (s *RedisStore) Subscribe(userID string, fn func(Status)) (func(), error) {
	pubsub, err := s.client.Subscribe(keyPrefix + userID)
	if err != nil {
		return nil, err
	}

	current, err := s.GetStatus(userID)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	fn(current)

	done := make(chan struct{})
	go func() {
		for {
			msg, err := pubsub.ReceiveMessage()
			if err != nil {
				select {
				case <-done:
				default:
					log.WithError(err).WithField("user_id", userID).
						Warn("presence subscription closed")
				}
				return
			}

			var status Status
			if err := json.Unmarshal([]byte(msg.Payload), &status); err != nil {
				log.WithError(err).WithField("user_id", userID).
					Warn("malformed presence payload")
				continue
			}
			fn(status)
		}
	}()

	return func() {
		close(done)
		_ = pubsub.Close()
	}, nil
}
