package tomato

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tomato-exporter/internal/config"
)

const testToken = "TID4bad0f0eba40bd0c"

// routerSim approximates a Tomato web console: Basic auth on every
// request, http_id embedded in the root page, shell.cgi checks _http_id.
type routerSim struct {
	user, password string
	token          string
	rejectCommands bool
	logins         int
	commands       int
	execute        func(command string) (int, string)
}

func newRouterSim() *routerSim {
	return &routerSim{
		user:     "admin",
		password: "secret",
		token:    testToken,
		execute: func(string) (int, string) {
			return http.StatusOK, "hello\n"
		},
	}
}

func (s *routerSim) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != s.user || p != s.password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.logins++
		fmt.Fprintf(w, "<html><script>\nnvram = {\n\t'http_id': '%s',\n\t'web_mx': 'status,bwm'};\n</script></html>", s.token)
	})
	mux.HandleFunc("/shell.cgi", func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != s.user || p != s.password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil || s.rejectCommands || r.PostForm.Get("_http_id") != s.token {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		s.commands++
		status, body := s.execute(r.PostForm.Get("command"))
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
	return mux
}

func testClient(t *testing.T, sim *routerSim, opts ...Option) (*Client, *httptest.Server) {
	srv := httptest.NewServer(sim.handler())
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	d := &config.Device{
		Name:     "test",
		Address:  u.Hostname(),
		Port:     u.Port(),
		User:     sim.user,
		Password: sim.password,
	}
	return NewClient(d, opts...), srv
}

func TestLoginExtractsToken(t *testing.T) {
	c, _ := testClient(t, newRouterSim())

	require.NoError(t, c.Login(context.Background()))
	assert.Equal(t, testToken, c.token)
	assert.Equal(t, stateValid, c.state)
}

func TestLoginRejected(t *testing.T) {
	sim := newRouterSim()
	c, _ := testClient(t, sim)
	c.device.Password = "wrong"

	err := c.Login(context.Background())
	assert.ErrorIs(t, err, ErrAuthRejected)
	assert.Equal(t, 0, sim.logins)
}

func TestLoginMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>nothing useful here</html>")
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	c := NewClient(&config.Device{Address: u.Hostname(), Port: u.Port()})
	assert.ErrorIs(t, c.Login(context.Background()), ErrMalformedAuthResponse)
}

func TestRunCommandLogsInFirst(t *testing.T) {
	sim := newRouterSim()
	sim.execute = func(command string) (int, string) {
		assert.Equal(t, "uname -a", command)
		return http.StatusOK, "Linux karabor 2.6.22.19 #31 mips Tomato\n"
	}
	c, _ := testClient(t, sim)

	out, err := c.RunCommand(context.Background(), "uname -a")
	require.NoError(t, err)
	assert.Contains(t, out, "Linux karabor")
	assert.Equal(t, 1, sim.logins)
	assert.Equal(t, 1, sim.commands)
}

func TestRunCommandStripsWrapper(t *testing.T) {
	sim := newRouterSim()
	sim.execute = func(string) (int, string) {
		return http.StatusOK, "<html><body><textarea rows='20'>MemTotal: 131072 kB\n</textarea></body></html>"
	}
	c, _ := testClient(t, sim)

	out, err := c.RunCommand(context.Background(), "cat /proc/meminfo")
	require.NoError(t, err)
	assert.Equal(t, "MemTotal: 131072 kB\n", out)
}

func TestRunCommandPassesThroughUnmarkedOutput(t *testing.T) {
	sim := newRouterSim()
	sim.execute = func(string) (int, string) {
		return http.StatusOK, "0.01 0.02 0.03 2/38 23618\n"
	}
	c, _ := testClient(t, sim)

	out, err := c.RunCommand(context.Background(), "cat /proc/loadavg")
	require.NoError(t, err)
	assert.Equal(t, "0.01 0.02 0.03 2/38 23618\n", out)
}

func TestRunCommandEmptyOutput(t *testing.T) {
	sim := newRouterSim()
	sim.execute = func(string) (int, string) {
		return http.StatusOK, "  \n"
	}
	c, _ := testClient(t, sim)

	_, err := c.RunCommand(context.Background(), "true")
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestRunCommandRefreshesExpiredSessionOnce(t *testing.T) {
	sim := newRouterSim()
	c, _ := testClient(t, sim)

	require.NoError(t, c.Login(context.Background()))

	// rotate the token server-side: the held session is now expired
	sim.token = "TIDfresh0000000000"

	out, err := c.RunCommand(context.Background(), "uptime")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
	assert.Equal(t, 2, sim.logins, "expected exactly one re-login")
	assert.Equal(t, stateValid, c.state)
}

func TestRunCommandUnauthorizedAfterRetry(t *testing.T) {
	sim := newRouterSim()
	c, _ := testClient(t, sim)

	require.NoError(t, c.Login(context.Background()))
	logins := sim.logins

	// the sim rejects every command regardless of token, so the single
	// re-login cannot help
	sim.rejectCommands = true

	_, err := c.RunCommand(context.Background(), "uptime")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, logins+1, sim.logins, "expected exactly one re-login before giving up")
	assert.Equal(t, stateExpired, c.state)
}

func TestRunCommandTimeout(t *testing.T) {
	sim := newRouterSim()
	c, srv := testClient(t, sim, WithTimeout(50*time.Millisecond))

	srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})

	_, err := c.RunCommand(context.Background(), "uptime")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrAuthRejected)
}

func TestRunCommandHonorsCancellation(t *testing.T) {
	sim := newRouterSim()
	c, _ := testClient(t, sim)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.RunCommand(ctx, "uptime")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchPagePostsForm(t *testing.T) {
	sim := newRouterSim()
	srv := httptest.NewServer(nil)
	defer srv.Close()

	mux := http.NewServeMux()
	mux.Handle("/", sim.handler())
	mux.HandleFunc("/update.cgi", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "netdev", r.PostForm.Get("exec"))
		assert.Equal(t, testToken, r.PostForm.Get("_http_id"))
		fmt.Fprint(w, "netdev={'eth0':{rx:0x10,tx:0x20}};")
	})
	srv.Config.Handler = mux

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	c := NewClient(&config.Device{
		Address: u.Hostname(), Port: u.Port(),
		User: sim.user, Password: sim.password,
	})

	body, err := c.FetchPage(context.Background(), "update.cgi", url.Values{"exec": {"netdev"}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(body, "netdev="))
}

func TestDefaultTokenExtractorQueryFallback(t *testing.T) {
	tok, ok := DefaultTokenExtractor(`<a href="/status-overview.asp?_http_id=TIDaabbccddee">status</a>`)
	require.True(t, ok)
	assert.Equal(t, "TIDaabbccddee", tok)
}

func TestDefaultOutputStripperPre(t *testing.T) {
	assert.Equal(t, "out\n", DefaultOutputStripper("<html><pre class='cmd'>out\n</pre></html>"))
}
