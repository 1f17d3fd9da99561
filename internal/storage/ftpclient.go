package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rs/zerolog/log"
)

// ErrIncompleteTransfer is returned when fewer bytes were sent than staged
var ErrIncompleteTransfer = errors.New("ftp transfer incomplete")

// ErrMissingFTPSettings is returned when host or login details are absent
var ErrMissingFTPSettings = errors.New("ftp host, username and password are required")

// ErrKeyOutsideDirectory is returned for keys that resolve outside the
// configured directory
var ErrKeyOutsideDirectory = errors.New("ftp key resolves outside the storage directory")

// ftpConn is the subset of *ftp.ServerConn the client uses
type ftpConn interface {
	Login(user, password string) error
	ChangeDir(dir string) error
	MakeDir(dir string) error
	Stor(path string, r io.Reader) error
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

type ftpDialer func(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error)

// serverConn adapts *ftp.ServerConn to ftpConn
type serverConn struct {
	*ftp.ServerConn
}

func (s serverConn) Retr(p string) (io.ReadCloser, error) {
	return s.ServerConn.Retr(p)
}

func dialFTP(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error) {
	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
	if err != nil {
		return nil, err
	}
	return serverConn{conn}, nil
}

// FTPOptions configures an FTPClient. Only passive transfers are supported:
// Passive=false is logged as a warning and otherwise ignored.
type FTPOptions struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Directory string
	Passive   bool // must be true; active mode is not implemented
	Timeout   time.Duration

	dialer ftpDialer
}

// FTPClient performs one connect, login, transfer and quit cycle per call
type FTPClient struct {
	host      string
	addr      string
	username  string
	password  string
	directory string
	timeout   time.Duration
	dial      ftpDialer
}

// NewFTPClient validates the options and returns a client
func NewFTPClient(opts FTPOptions) (*FTPClient, error) {
	if opts.Host == "" || opts.Username == "" || opts.Password == "" {
		return nil, ErrMissingFTPSettings
	}

	port := opts.Port
	if port == 0 {
		port = 21
	}

	dir := opts.Directory
	if dir == "" {
		dir = "/"
	}
	dir = path.Clean("/" + dir)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	if !opts.Passive {
		log.Warn().Str("host", opts.Host).Msg("active FTP mode is not supported, using passive mode")
	}

	dial := opts.dialer
	if dial == nil {
		dial = dialFTP
	}

	return &FTPClient{
		host:      opts.Host,
		addr:      net.JoinHostPort(opts.Host, strconv.Itoa(port)),
		username:  opts.Username,
		password:  opts.Password,
		directory: dir,
		timeout:   timeout,
		dial:      dial,
	}, nil
}

// Host returns the configured server host
func (c *FTPClient) Host() string {
	return c.host
}

// RemotePath returns the absolute server path used for key. Keys that
// resolve to the directory itself or outside it are rejected.
func (c *FTPClient) RemotePath(key string) (string, error) {
	fullPath := path.Join(c.directory, key)
	prefix := strings.TrimSuffix(c.directory, "/") + "/"
	if fullPath == c.directory || !strings.HasPrefix(fullPath, prefix) {
		return "", fmt.Errorf("%w: %q", ErrKeyOutsideDirectory, key)
	}
	return fullPath, nil
}

// PutObject uploads data to {directory}/{key}, creating missing directories
func (c *FTPClient) PutObject(ctx context.Context, key string, data []byte) error {
	fullPath, err := c.RemotePath(key)
	if err != nil {
		return err
	}

	staged, err := stageFile(data)
	if err != nil {
		return err
	}
	defer os.Remove(staged.Name())
	defer staged.Close()

	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer c.quit(conn)

	if err := ensureDirectories(conn, path.Dir(fullPath)); err != nil {
		return err
	}

	counter := &countingReader{r: staged}
	if err := conn.Stor(fullPath, counter); err != nil {
		return fmt.Errorf("failed to upload %s: %w", fullPath, err)
	}
	if counter.n != int64(len(data)) {
		return fmt.Errorf("%w: sent %d of %d bytes", ErrIncompleteTransfer, counter.n, len(data))
	}

	log.Debug().Str("path", fullPath).Int("bytes", len(data)).Msg("ftp upload complete")
	return nil
}

// GetObject downloads {directory}/{key}. A permanent (5xx) reply to RETR
// means the file does not exist.
func (c *FTPClient) GetObject(ctx context.Context, key string) ([]byte, bool, error) {
	fullPath, err := c.RemotePath(key)
	if err != nil {
		return nil, false, err
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, false, err
	}
	defer c.quit(conn)

	resp, err := conn.Retr(fullPath)
	if err != nil {
		if isPermanentReply(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to download %s: %w", fullPath, err)
	}

	spool, err := os.CreateTemp("", "simpledrive-ftp-*")
	if err != nil {
		resp.Close()
		return nil, false, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(spool.Name())
	defer spool.Close()

	_, copyErr := io.Copy(spool, resp)
	closeErr := resp.Close()
	if copyErr != nil {
		return nil, false, fmt.Errorf("failed to download %s: %w", fullPath, copyErr)
	}
	if closeErr != nil {
		return nil, false, fmt.Errorf("failed to finish download of %s: %w", fullPath, closeErr)
	}

	data, err := os.ReadFile(spool.Name())
	if err != nil {
		return nil, false, fmt.Errorf("failed to read temporary file: %w", err)
	}
	return data, true, nil
}

func (c *FTPClient) connect(ctx context.Context) (ftpConn, error) {
	conn, err := c.dial(ctx, c.addr, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}
	if err := conn.Login(c.username, c.password); err != nil {
		c.quit(conn)
		return nil, fmt.Errorf("login to %s failed: %w", c.addr, err)
	}
	return conn, nil
}

func (c *FTPClient) quit(conn ftpConn) {
	if err := conn.Quit(); err != nil {
		log.Debug().Err(err).Str("addr", c.addr).Msg("ftp quit failed")
	}
}

// ensureDirectories walks dir from the root, creating each missing segment.
// Directories created before a failure are left in place.
func ensureDirectories(conn ftpConn, dir string) error {
	current := "/"
	for _, segment := range strings.Split(strings.Trim(dir, "/"), "/") {
		if segment == "" {
			continue
		}
		current = path.Join(current, segment)

		err := conn.ChangeDir(current)
		if err == nil {
			continue
		}
		if !isPermanentReply(err) {
			return fmt.Errorf("failed to change to %s: %w", current, err)
		}
		if err := conn.MakeDir(current); err != nil {
			return fmt.Errorf("failed to create %s: %w", current, err)
		}
	}
	return nil
}

func stageFile(data []byte) (*os.File, error) {
	f, err := os.CreateTemp("", "simpledrive-ftp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	return f, nil
}

// isPermanentReply reports a 5xx FTP reply
func isPermanentReply(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code >= 500 && tpErr.Code < 600
}

// replyCode returns the FTP reply code in err's chain, if any
func replyCode(err error) (int, bool) {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code, true
	}
	return 0, false
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
