package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"watchwire/internal/config"
	"watchwire/internal/controller"
	"watchwire/internal/engine"
	"watchwire/internal/heartbeat"
	"watchwire/internal/media"
	"watchwire/internal/peerlink"
	"watchwire/internal/protocol"
	"watchwire/internal/session"
	"watchwire/internal/ui"
)

var (
	flagServer   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
	flagInsecure bool
	flagManual   bool
)

func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagServer, "server", "d", "", "Custom rendezvous server host[:port]")
	cmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	cmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	cmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	cmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	cmd.Flags().BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
	cmd.Flags().BoolVar(&flagInsecure, "insecure", false, "Use ws:// instead of wss:// for the rendezvous server")
	cmd.Flags().BoolVarP(&flagManual, "manual", "m", false, "Exchange connection codes by hand instead of using a rendezvous room")
}

func loadConfig() (*config.Config, error) {
	return config.Load(config.Options{
		Server:     flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
		Insecure:   flagInsecure,
	})
}

// watchApp wires one session's worth of moving parts: the controller
// that owns the session, the engine that maps sync messages onto the
// player, and the heartbeat monitor that watches the channel.
type watchApp struct {
	cfg    *config.Config
	role   peerlink.Role
	ctrl   *controller.Controller
	player *media.ClockPlayer
	eng    *engine.Engine
	hb     *heartbeat.Monitor

	statusCh chan controller.ConnectionStatus
	tokenCh  chan string

	started time.Time
}

func newWatchApp(cfg *config.Config, role peerlink.Role, manual bool) *watchApp {
	a := &watchApp{
		cfg:      cfg,
		role:     role,
		player:   media.NewClockPlayer(),
		statusCh: make(chan controller.ConnectionStatus, 64),
		tokenCh:  make(chan string, 1),
		started:  time.Now(),
	}

	var dialer peerlink.Dialer
	if manual {
		dialer = &peerlink.ManualDialer{Cfg: cfg}
	} else {
		dialer = &peerlink.RendezvousDialer{Cfg: cfg}
	}

	sessCfg := session.Config{
		SetupTimeout:       cfg.SetupTimeout,
		ChannelOpenTimeout: cfg.ChannelOpenTimeout,
		RetryBackoff:       cfg.RetryBackoff,
		MaxRetries:         cfg.MaxRetries,
	}

	a.ctrl = controller.New(controller.Options{
		Role: role,
		Factory: func(r peerlink.Role, cb session.Callbacks) *session.Session {
			return session.New(sessCfg, r, dialer, cb)
		},
		OnStatus: func(st controller.ConnectionStatus) {
			select {
			case a.statusCh <- st:
			default:
			}
		},
		OnToken: func(token string) {
			select {
			case a.tokenCh <- token:
			default:
			}
		},
		OnMessage: func(data []byte) {
			a.eng.HandleIncoming(data)
		},
		OnPeerType: func(peerType string) {
			a.eng.UseCodec(protocol.SelectCodec("cli", peerType))
		},
	})

	host := role == peerlink.RoleHost
	sess := a.ctrl.Session()
	a.eng = engine.New(host, a.player, sess.Send, sess.IsOpen)

	a.hb = heartbeat.New(cfg.HeartbeatInterval, a.eng.SendPing, sess.IsOpen, func() {
		// Pong silence past the liveness window reads as a lost
		// connection even before the transport reports anything.
		select {
		case a.statusCh <- controller.ConnectionStatus{Connected: false, Message: "Connection lost"}:
		default:
		}
	})
	a.eng.SetPongObserver(a.hb.ObservePong)

	return a
}

func (a *watchApp) Close() {
	a.hb.Stop()
	a.ctrl.Shutdown()
}

// waitForToken blocks until the addressing token (room id or connection
// code) is ready, or the session fails first.
func (a *watchApp) waitForToken() (string, error) {
	for {
		select {
		case token := <-a.tokenCh:
			return token, nil
		case st := <-a.statusCh:
			if a.terminal() {
				return "", fmt.Errorf("%s", st.Message)
			}
		}
	}
}

// waitForOpen blocks until the data channel is established, or the
// session parks in a terminal state.
func (a *watchApp) waitForOpen() error {
	for st := range a.statusCh {
		if st.Connected {
			return nil
		}
		if a.terminal() {
			return fmt.Errorf("%s", st.Message)
		}
	}
	return fmt.Errorf("session closed")
}

func (a *watchApp) terminal() bool {
	switch a.ctrl.Session().Status() {
	case session.StatusFailed, session.StatusClosed:
		return true
	}
	return false
}

// runWatchScreen hands the terminal to the interactive watch view and
// keeps it fed with status updates until the user quits or the session
// reaches a terminal state.
func (a *watchApp) runWatchScreen() error {
	var controls *ui.WatchControls
	if a.role == peerlink.RoleHost {
		controls = &ui.WatchControls{
			TogglePlay: func() {
				if a.player.Paused() {
					a.player.Play()
				} else {
					a.player.Pause()
				}
			},
			SeekBy: func(delta float64) {
				a.player.Seek(a.player.CurrentTime() + delta)
			},
			Reset: a.eng.Reset,
		}
	}

	model := ui.NewWatchModel(string(a.role), a.player, controls)
	program := tea.NewProgram(model)

	done := make(chan struct{})
	defer close(done)

	go a.eng.Pump(done)

	go func() {
		status := a.ctrl.Status()
		program.Send(ui.StatusMsg{Connected: status.Connected, Text: status.Message})
		for {
			select {
			case st := <-a.statusCh:
				program.Send(ui.StatusMsg{Connected: st.Connected, Text: st.Message})
				if st.Connected && a.role == peerlink.RoleHost {
					a.hb.Start()
				}
				if a.terminal() {
					program.Send(ui.QuitMsg{})
				}
			case <-done:
				return
			}
		}
	}()

	if a.role == peerlink.RoleHost {
		a.hb.Start()
	}

	_, err := program.Run()
	return err
}

func (a *watchApp) printSummary() {
	status := "Disconnected"
	if a.ctrl.Status().Connected {
		status = "Connected"
	}

	roleText := "Host"
	peerText := "Client"
	if a.role == peerlink.RoleClient {
		roleText = "Client"
		peerText = "Host"
	}

	fmt.Println()
	ui.RenderSessionSummary(ui.SessionSummary{
		Status:   status,
		Role:     roleText,
		Peer:     peerText,
		Duration: time.Since(a.started).Round(time.Second).String(),
		Video:    a.player.Source(),
	})
}
