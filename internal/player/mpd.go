// SPDX-License-Identifier: MIT
package player

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/fhs/gompd/v2/mpd"
)

// MPDClient adapts a Music Player Daemon connection to the Client interface.
// The daemon closes idle connections, so every command redials once on a
// dropped connection before giving up.
type MPDClient struct {
	addr string

	mu   sync.Mutex
	conn *mpd.Client
}

// DialMPD connects to the daemon at addr ("host:port").
func DialMPD(addr string) (Client, error) {
	conn, err := mpd.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("player: dial %s: %w", addr, err)
	}
	return &MPDClient{addr: addr, conn: conn}, nil
}

// Status implements Client.
func (c *MPDClient) Status() (Status, error) {
	attrs, err := c.command(func(conn *mpd.Client) (mpd.Attrs, error) {
		return conn.Status()
	})
	if err != nil {
		return Status{}, err
	}
	return statusFromAttrs(attrs), nil
}

// CurrentSong implements Client. A stopped daemon with an empty queue
// reports no song; that is (nil, nil), not an error.
func (c *MPDClient) CurrentSong() (*Song, error) {
	attrs, err := c.command(func(conn *mpd.Client) (mpd.Attrs, error) {
		return conn.CurrentSong()
	})
	if err != nil {
		return nil, err
	}
	return songFromAttrs(attrs), nil
}

// Close terminates the daemon connection.
func (c *MPDClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// command runs one daemon command, redialing once when the connection has
// gone away since the last poll.
func (c *MPDClient) command(fn func(*mpd.Client) (mpd.Attrs, error)) (mpd.Attrs, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		attrs, err := fn(c.conn)
		if err == nil {
			return attrs, nil
		}
		c.conn.Close()
		c.conn = nil
	}

	conn, err := mpd.Dial("tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("player: redial %s: %w", c.addr, err)
	}
	c.conn = conn
	return fn(c.conn)
}

func statusFromAttrs(attrs mpd.Attrs) Status {
	status := Status{State: State(attrs["state"])}
	if v, err := strconv.ParseFloat(attrs["elapsed"], 64); err == nil {
		status.Elapsed = v
	}
	if v, err := strconv.ParseFloat(attrs["duration"], 64); err == nil {
		status.Duration = v
	}
	return status
}

func songFromAttrs(attrs mpd.Attrs) *Song {
	file := attrs["file"]
	if file == "" {
		return nil
	}
	return &Song{
		File:   file,
		Title:  attrs["Title"],
		Artist: attrs["Artist"],
		Album:  attrs["Album"],
	}
}

var _ Client = (*MPDClient)(nil)
