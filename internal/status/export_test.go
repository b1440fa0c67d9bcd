package status

import "github.com/nats-io/nats.go"

func JetStreamKV(s *JetStreamStore) nats.KeyValue { return s.kv }
