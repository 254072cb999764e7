// Graphcache exposes its graph cache over the Redis protocol, so operators can inspect and flush it with any Redis
// client (e.g. `redis-cli -p 6380 INFO`).

package port

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/nobletooth/graphcache/pkg/graph"
	"github.com/nobletooth/graphcache/pkg/scan"
	"github.com/tidwall/redcon"
)

const RedisOk = "OK"

var address = flag.String("address", ":6380", "The ip:port to listen on for Redis protocol.")

// GraphStore is the graph cache as seen by the Redis port.
type GraphStore interface {
	Graph(key string) (*graph.Graph, error)
	Cached(key string) (*graph.Graph, bool)
	Keys() []string
	Len() int
	Clear()
	Describe() string
}

var _ GraphStore = (*graph.Service)(nil)

// redisCommand represents a Redis command with its arguments.
type redisCommand struct {
	command string
	args    []string
}

// redisOutput conforms to a real Redis server output on non pub / sub commands.
type redisOutput struct {
	closeConnection bool     // Closes the connection if true.
	writeNil        bool     // Writes a nil value if true.
	err             *string  // Error to return if set.
	writeInt        *int     // Writes an integer value if set.
	writeBulk       bool     // Writes `writeString` as a bulk string instead of a simple string.
	writeArray      bool     // Writes `array` as an array of bulk strings.
	array           []string // Array items; only used with `writeArray`.
	writeString     string   // Writes a string value if set.
}

func closeRedisConnection(msg string) redisOutput {
	return redisOutput{writeString: msg, closeConnection: true}
}

func writeRedisNil() redisOutput {
	return redisOutput{writeNil: true}
}

func writeRedisInt(i int) redisOutput {
	return redisOutput{writeInt: &i}
}

func writeRedisString(s string) redisOutput {
	return redisOutput{writeString: s}
}

func writeRedisBulk(s string) redisOutput {
	return redisOutput{writeString: s, writeBulk: true}
}

func writeRedisArray(items []string) redisOutput {
	return redisOutput{writeArray: true, array: items}
}

func writeRedisError(err error) redisOutput {
	msg := "ERR " + err.Error()
	return redisOutput{err: &msg}
}

func wrongArgumentCount(command string) redisOutput {
	return writeRedisError(fmt.Errorf("wrong number of arguments for '%s' command", strings.ToLower(command)))
}

type redisHandler struct {
	store GraphStore
}

// newRedisHandler creates a new redisHandler.
func newRedisHandler(store GraphStore) (*redisHandler, error) {
	if store == nil {
		return nil, errors.New("expected a non-nil graph store")
	}
	return &redisHandler{store: store}, nil
}

func (rh *redisHandler) handle(cmd redisCommand) redisOutput {
	switch strings.ToUpper(cmd.command) {
	case "PING":
		if len(cmd.args) == 1 {
			return writeRedisBulk(cmd.args[0])
		}
		return writeRedisString("PONG")
	case "QUIT":
		return closeRedisConnection(RedisOk)
	case "GET":
		if len(cmd.args) != 1 {
			return wrongArgumentCount(cmd.command)
		}
		g, err := rh.store.Graph(cmd.args[0])
		if errors.Is(err, graph.ErrGraphNotFound) {
			return writeRedisNil()
		} else if err != nil {
			return writeRedisError(err)
		}
		encoded, err := json.Marshal(g)
		if err != nil {
			return writeRedisError(fmt.Errorf("failed to encode graph: %w", err))
		}
		return writeRedisBulk(string(encoded))
	case "EXISTS":
		if len(cmd.args) < 1 {
			return wrongArgumentCount(cmd.command)
		}
		existing := 0
		for _, key := range cmd.args {
			if _, found := rh.store.Cached(key); found {
				existing++
			}
		}
		return writeRedisInt(existing)
	case "KEYS":
		if len(cmd.args) != 1 {
			return wrongArgumentCount(cmd.command)
		}
		matched := slices.Collect(scan.MatchGlob(cmd.args[0], slices.Values(rh.store.Keys())))
		return writeRedisArray(matched)
	case "DBSIZE":
		return writeRedisInt(rh.store.Len())
	case "FLUSHALL", "FLUSHDB":
		rh.store.Clear()
		return writeRedisString(RedisOk)
	case "INFO":
		return writeRedisBulk(rh.store.Describe())
	default:
		return writeRedisError(fmt.Errorf("unknown command '%s'", cmd.command))
	}
}

// writeRedisOutput writes the handler output on the connection.
func writeRedisOutput(conn redcon.Conn, output redisOutput) {
	switch {
	case output.closeConnection:
		conn.WriteString(output.writeString)
		if err := conn.Close(); err != nil {
			slog.Error("Failed to close connection.", "error", err)
		}
	case output.err != nil:
		conn.WriteError(*output.err)
	case output.writeNil:
		conn.WriteNull()
	case output.writeInt != nil:
		conn.WriteInt(*output.writeInt)
	case output.writeArray:
		conn.WriteArray(len(output.array))
		for _, item := range output.array {
			conn.WriteBulkString(item)
		}
	case output.writeBulk:
		conn.WriteBulkString(output.writeString)
	default:
		conn.WriteString(output.writeString)
	}
}

// RunRedisServer starts a Redis protocol server serving the given graph store until `ctx` is cancelled.
func RunRedisServer(ctx context.Context, store GraphStore) error {
	if *address == "" {
		return errors.New("expected a non-empty --address flag")
	}

	redisHandler, err := newRedisHandler(store)
	if err != nil {
		return fmt.Errorf("failed to create a new redis handler: %w", err)
	}

	redisServer := redcon.NewServerNetwork("tcp" /*net*/, *address,
		/*handler*/ func(conn redcon.Conn, cmd redcon.Command) {
			// Convert redcon.Command to redisCommand.
			command := redisCommand{command: string(cmd.Args[0]), args: make([]string, len(cmd.Args)-1)}
			for i := 1; i < len(cmd.Args); i++ {
				command.args[i-1] = string(cmd.Args[i])
			}
			writeRedisOutput(conn, redisHandler.handle(command))
		},
		/*accept*/ func(conn redcon.Conn) bool {
			return true // Accept all connections.
		},
		/*closed*/ func(conn redcon.Conn, err error) {
			if err != nil {
				slog.Debug("Redis connection closed with error.", "remote", conn.RemoteAddr(), "error", err)
			}
		})

	serverErrSignal := make(chan error, 1)
	go func() {
		slog.Info("Serving graph cache over Redis protocol.", "address", *address)
		if err := redisServer.ListenAndServe(); err != nil {
			serverErrSignal <- err
		}
		close(serverErrSignal)
	}()

	select {
	case <-ctx.Done():
		if err := redisServer.Close(); err != nil {
			return fmt.Errorf("failed to close redis server: %w", err)
		}
	case err, ok := <-serverErrSignal:
		if ok {
			return fmt.Errorf("redis server stopped unexpectedly: %w", err)
		}
	}

	return nil // Exited with no errors.
}
