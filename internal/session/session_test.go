package session

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"obot/internal/bot"
	"obot/internal/errs"
	"obot/internal/logger"
	"obot/pkg/api"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeChain struct {
	mu    sync.Mutex
	eat   api.Eat
	seen  []string
	names []string
}

func (c *fakeChain) Dispatch(_ api.Sender, from, to, command, text string) api.Eat {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, command)
	return c.eat
}

func (c *fakeChain) Load(path string) error {
	c.names = append(c.names, path)
	return nil
}

func (c *fakeChain) Unload(name string) error { return errs.ErrPluginNotLoaded }
func (c *fakeChain) Names() []string          { return c.names }

type fakeSpawner struct {
	spawned []*bot.Bot
}

func (f *fakeSpawner) Spawn(b *bot.Bot) { f.spawned = append(f.spawned, b) }

// server is the far end of a net.Pipe: it collects the lines the session
// writes and lets the test write lines back.
type server struct {
	t     *testing.T
	conn  net.Conn
	lines chan string
}

func newServer(t *testing.T, conn net.Conn) *server {
	srv := &server{t: t, conn: conn, lines: make(chan string, 64)}
	go func() {
		defer close(srv.lines)
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			srv.lines <- strings.TrimSuffix(sc.Text(), "\r")
		}
	}()
	return srv
}

func (srv *server) next() string {
	srv.t.Helper()
	select {
	case line, ok := <-srv.lines:
		if !ok {
			srv.t.Fatal("connection closed while waiting for a line")
		}
		return line
	case <-time.After(2 * time.Second):
		srv.t.Fatal("timed out waiting for a line")
	}
	return ""
}

func (srv *server) expect(lines ...string) {
	srv.t.Helper()
	for _, want := range lines {
		assert.Equal(srv.t, want, srv.next())
	}
}

func (srv *server) quiet() {
	srv.t.Helper()
	select {
	case line, ok := <-srv.lines:
		if ok {
			srv.t.Errorf("unexpected line %q", line)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func (srv *server) send(lines ...string) {
	srv.t.Helper()
	for _, l := range lines {
		_, err := srv.conn.Write([]byte(l + "\r\n"))
		require.NoError(srv.t, err)
	}
}

func newBot(t *testing.T) (*bot.Registry, *bot.Bot) {
	t.Helper()
	reg := bot.NewRegistry()
	b := reg.Create()
	b.Host, b.Port = "irc.example.net", 6667
	b.User, b.RealName = "obot", "O-bot"
	b.SetNick("bot")
	b.SetDesiredNick("bot")
	b.AddAdmins("alice")
	require.NoError(t, reg.AddChannel(b, "#a,#b"))
	return reg, b
}

func testConfig(reg *bot.Registry) Config {
	return Config{
		Registry: reg,
		Chain:    &fakeChain{},
		Spawner:  &fakeSpawner{},
		Logger:   logger.New(&bytes.Buffer{}, 0),
		Options:  Options{CommandPrefix: "!", QuitGrace: 100 * time.Millisecond},
	}
}

// attached returns a session wired to an in-memory server without
// running the read loop.
func attached(t *testing.T, b *bot.Bot, cfg Config) (*Session, *server) {
	t.Helper()
	client, far := net.Pipe()
	s := New(b, cfg)
	s.attach(client)
	srv := newServer(t, far)
	t.Cleanup(func() {
		s.close()
		far.Close()
		for range srv.lines {
		}
	})
	return s, srv
}

var tempNick = regexp.MustCompile(`^NICK bot[0-9a-f]{4}$`)

func TestNickCollisionPicksTempNick(t *testing.T) {
	reg, b := newBot(t)
	s, srv := attached(t, b, testConfig(reg))

	assert.Equal(t, OutcomeContinue, s.process(":irc.example.net 433 * bot :Nickname is already in use"))
	line := srv.next()
	assert.Regexp(t, tempNick, line)
	assert.Equal(t, strings.TrimPrefix(line, "NICK "), b.TempNick())
	assert.Equal(t, StateRegistering, s.State())
}

func TestNickCollisionIgnoredWhenRunning(t *testing.T) {
	reg, b := newBot(t)
	s, srv := attached(t, b, testConfig(reg))
	s.state = StateRunning

	s.process(":irc.example.net 433 bot other :Nickname is already in use")
	srv.quiet()
	assert.Empty(t, b.TempNick())
}

func TestEndOfMotdAdoptsTempNick(t *testing.T) {
	reg, b := newBot(t)
	s, srv := attached(t, b, testConfig(reg))
	b.SetTempNick("botab12")

	s.process(":irc.example.net 376 botab12 :End of /MOTD command.")
	srv.expect("JOIN #a", "JOIN #b")
	srv.quiet()

	assert.Equal(t, "botab12", b.Nick())
	assert.Empty(t, b.TempNick())
	assert.Equal(t, StateRunning, s.State())
	assert.True(t, b.Status().Has(bot.StatusRunning))
	assert.False(t, b.Status().Has(bot.StatusStarting))
}

func TestNoMotdWithNickServGhosts(t *testing.T) {
	reg, b := newBot(t)
	b.NickServPass = "secret"
	b.Modes = "+i"
	s, srv := attached(t, b, testConfig(reg))
	b.SetTempNick("bot00ff")

	s.process(":irc.example.net 422 bot00ff :MOTD File is missing")
	srv.expect(
		"PRIVMSG NickServ :GHOST bot secret",
		"PRIVMSG NickServ :IDENTIFY secret",
		"MODE bot00ff :+i",
		"JOIN #a",
		"JOIN #b",
	)
	assert.Empty(t, b.TempNick())
	assert.Equal(t, "bot00ff", b.Nick())

	s.process(":NickServ!services@services.example.net NOTICE bot00ff :Ghost with your nick has been killed.")
	srv.expect("NICK bot")

	s.process(":bot00ff!obot@host NICK :bot")
	assert.Equal(t, "bot", b.Nick())
}

func TestNickServIdentifyOnRequest(t *testing.T) {
	reg, b := newBot(t)
	s, srv := attached(t, b, testConfig(reg))

	s.process(":NickServ!s@services NOTICE bot :This nickname is registered and protected.")
	srv.quiet()

	b.NickServPass = "pw"
	s.process(":NickServ!s@services NOTICE bot :This nickname is registered and protected.")
	srv.expect("PRIVMSG NickServ :IDENTIFY pw")
}

func TestAuthNoticeRegistersOnce(t *testing.T) {
	reg, b := newBot(t)
	b.Pass = "serverpw"
	s, srv := attached(t, b, testConfig(reg))

	s.process("NOTICE AUTH :*** Looking up your hostname...")
	srv.quiet()
	s.process(":irc.example.net NOTICE * :*** Couldn't resolve your hostname; using your IP address instead")
	srv.expect("PASS serverpw", "USER obot * 8 :O-bot", "NICK bot")
	s.process("NOTICE AUTH :*** Found your hostname")
	srv.quiet()
}

func TestPingAlwaysAnswered(t *testing.T) {
	reg, b := newBot(t)
	cfg := testConfig(reg)
	cfg.Chain = &fakeChain{eat: api.EatAll}
	s, srv := attached(t, b, cfg)

	s.process("PING :irc.example.net")
	srv.expect("PONG :irc.example.net")
}

func TestPluginEatAllSkipsCommands(t *testing.T) {
	reg, b := newBot(t)
	chain := &fakeChain{eat: api.EatAll}
	cfg := testConfig(reg)
	cfg.Chain = chain
	s, srv := attached(t, b, cfg)

	s.process(":alice!a@h PRIVMSG #a :!join #c")
	srv.quiet()
	assert.Equal(t, []string{"#a", "#b"}, b.Channels())

	chain.eat = api.EatPlugin
	s.process(":alice!a@h PRIVMSG #a :!join #c")
	srv.expect("JOIN #c")
	assert.Equal(t, []string{"PRIVMSG", "PRIVMSG"}, chain.seen)
}

func TestMalformedLineDropped(t *testing.T) {
	reg, b := newBot(t)
	chain := &fakeChain{}
	cfg := testConfig(reg)
	cfg.Chain = chain
	s, srv := attached(t, b, cfg)

	assert.Equal(t, OutcomeContinue, s.process(":onlyprefix"))
	srv.quiet()
	assert.Empty(t, chain.seen)
}

func TestCTCPVersion(t *testing.T) {
	reg, b := newBot(t)
	s, srv := attached(t, b, testConfig(reg))

	s.process(":carol!c@h PRIVMSG bot :\x01VERSION\x01")
	srv.expect("NOTICE carol :\x01VERSION obot 11.4\x01")
}

func TestClosingLinkOutcomes(t *testing.T) {
	cases := []struct {
		name   string
		status bot.Status
		drop   bool
		text   string
		want   Outcome
	}{
		{"restarting", bot.StatusRunning | bot.StatusRestarting | bot.StatusQuitting, false, "ERROR :Closing Link: bot (Quit: brb)", OutcomeReconnect},
		{"throttled", bot.StatusStarting, false, "ERROR :Closing Link: bot (Throttled: Reconnecting too fast)", OutcomeReconnectDelay},
		{"quitting", bot.StatusRunning | bot.StatusQuitting, false, "ERROR :Closing Link: bot (Quit: bye)", OutcomeNone},
		{"unexplained", bot.StatusRunning, false, "ERROR :Closing Link: bot (Ping timeout)", OutcomeNone},
		{"unexplained with reconnect_on_drop", bot.StatusRunning, true, "ERROR :Closing Link: bot (Ping timeout)", OutcomeReconnectDelay},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			reg, b := newBot(t)
			b.ReconnectOnDrop = c.drop
			b.SetStatus(c.status)
			s, _ := attached(t, b, testConfig(reg))

			assert.Equal(t, c.want, s.process(c.text))
			if c.want != OutcomeNone {
				assert.Equal(t, bot.StatusStarting, b.Status())
			}
		})
	}
}

func TestOutboundSanitized(t *testing.T) {
	reg, b := newBot(t)
	s, srv := attached(t, b, testConfig(reg))

	require.NoError(t, s.Privmsg("#a", "hi\r\nQUIT :gotcha"))
	srv.expect("PRIVMSG #a :hi QUIT :gotcha")

	require.NoError(t, s.Privmsg("#a", strings.Repeat("é", 400)))
	line := srv.next()
	assert.LessOrEqual(t, len(line), 510)
	assert.True(t, utf8.ValidString(line))
	assert.True(t, strings.HasPrefix(line, "PRIVMSG #a :éé"))

	require.NoError(t, s.Action("#a", "waves"))
	srv.expect("PRIVMSG #a :\x01ACTION waves\x01")
}

func TestSendAfterClose(t *testing.T) {
	reg, b := newBot(t)
	s, _ := attached(t, b, testConfig(reg))
	s.close()
	assert.ErrorIs(t, s.Privmsg("#a", "x"), errs.ErrNotConnected)
}

func TestPartAndSpawnThroughCommands(t *testing.T) {
	reg, b := newBot(t)
	cfg := testConfig(reg)
	cfg.MaxSessions = 2
	sp := &fakeSpawner{}
	cfg.Spawner = sp
	s, srv := attached(t, b, cfg)

	s.process(":alice!a@h PRIVMSG #a :!part #a,#zz")
	srv.expect("PART #a", "NOTICE alice :part failed: remove channel \"#zz\": channel not in set")
	assert.Equal(t, []string{"#b"}, b.Channels())

	s.process(":alice!a@h PRIVMSG #b :!spawn twin")
	srv.expect("NOTICE alice :Spawned session 2 as twin.")
	require.Len(t, sp.spawned, 1)
	assert.Equal(t, "twin", sp.spawned[0].Nick())
	assert.Equal(t, "twin", sp.spawned[0].DesiredNick())
	assert.Equal(t, []string{"#b"}, sp.spawned[0].Channels())

	s.process(":alice!a@h PRIVMSG #b :!spawn triplet")
	srv.expect("NOTICE alice :spawn failed: spawn: session limit reached (2)")
	assert.Equal(t, 2, reg.Len())
}

type pipeDialer struct {
	conns chan net.Conn
}

func newPipeDialer() *pipeDialer { return &pipeDialer{conns: make(chan net.Conn, 1)} }

func (d *pipeDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	client, far := net.Pipe()
	d.conns <- far
	return client, nil
}

type failDialer struct{}

func (failDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	return nil, errors.New("connection refused")
}

func runSession(ctx context.Context, s *Session) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() { out <- s.Run(ctx) }()
	return out
}

func waitOutcome(t *testing.T, out <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-out:
		return o
	case <-time.After(3 * time.Second):
		t.Fatal("session did not end")
	}
	return OutcomeContinue
}

func TestRunRegistersAndQuits(t *testing.T) {
	reg, b := newBot(t)
	b.Modes = "+i"
	cfg := testConfig(reg)
	d := newPipeDialer()
	cfg.Dialer = d

	out := runSession(context.Background(), New(b, cfg))
	srv := newServer(t, <-d.conns)

	srv.send(":irc.example.net NOTICE AUTH :*** Found your hostname")
	srv.expect("USER obot * 8 :O-bot", "NICK bot")

	srv.send(":irc.example.net 001 bot :Welcome", ":irc.example.net 376 bot :End of /MOTD command.")
	srv.expect("MODE bot :+i", "JOIN #a", "JOIN #b")

	srv.send("PING :12345")
	srv.expect("PONG :12345")

	srv.send(":alice!a@home PRIVMSG #a :!quit see you")
	srv.expect("QUIT :see you")
	assert.True(t, b.Status().Has(bot.StatusQuitting))

	srv.send("ERROR :Closing Link: bot (Quit: see you)")
	assert.Equal(t, OutcomeNone, waitOutcome(t, out))
	srv.conn.Close()
}

func TestRunReconnectCommand(t *testing.T) {
	reg, b := newBot(t)
	cfg := testConfig(reg)
	d := newPipeDialer()
	cfg.Dialer = d

	out := runSession(context.Background(), New(b, cfg))
	srv := newServer(t, <-d.conns)

	srv.send(":alice!a@home PRIVMSG bot :!reconnect")
	srv.expect("QUIT :obot 11.4")
	srv.send("ERROR :Closing Link: bot (Quit: obot 11.4)")
	assert.Equal(t, OutcomeReconnect, waitOutcome(t, out))
	assert.Equal(t, bot.StatusStarting, b.Status())
	srv.conn.Close()
}

func TestRunDropped(t *testing.T) {
	for _, drop := range []bool{false, true} {
		t.Run(fmt.Sprintf("reconnect_on_drop=%v", drop), func(t *testing.T) {
			reg, b := newBot(t)
			b.ReconnectOnDrop = drop
			cfg := testConfig(reg)
			d := newPipeDialer()
			cfg.Dialer = d

			out := runSession(context.Background(), New(b, cfg))
			far := <-d.conns
			far.Close()

			want := OutcomeNone
			if drop {
				want = OutcomeReconnectDelay
			}
			assert.Equal(t, want, waitOutcome(t, out))
		})
	}
}

func TestRunDialFailure(t *testing.T) {
	reg, b := newBot(t)
	cfg := testConfig(reg)
	cfg.Dialer = failDialer{}

	assert.Equal(t, OutcomeNone, New(b, cfg).Run(context.Background()))

	b.ReconnectOnDrop = true
	assert.Equal(t, OutcomeReconnectDelay, New(b, cfg).Run(context.Background()))
}

func TestRunCancelledSendsQuit(t *testing.T) {
	reg, b := newBot(t)
	cfg := testConfig(reg)
	d := newPipeDialer()
	cfg.Dialer = d

	ctx, cancel := context.WithCancel(context.Background())
	out := runSession(ctx, New(b, cfg))
	srv := newServer(t, <-d.conns)

	cancel()
	srv.expect("QUIT :obot 11.4")
	assert.Equal(t, OutcomeNone, waitOutcome(t, out))
	assert.True(t, b.Status().Has(bot.StatusQuitting))
	srv.conn.Close()
}

func TestFloodLimiterPaces(t *testing.T) {
	reg, b := newBot(t)
	cfg := testConfig(reg)
	cfg.FloodRate, cfg.FloodBurst = 20, 1
	s, srv := attached(t, b, cfg)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Raw(fmt.Sprintf("PRIVMSG #a :%d", i)))
		srv.next()
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}
