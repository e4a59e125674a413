package x11

import (
	"encoding/binary"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_CLIENT_LIST",
	"_NET_CLOSE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"_NET_WM_STATE",
	"_NET_WM_STATE_STICKY",
	"_NET_WM_WINDOW_TYPE",
	"_NET_WM_WINDOW_TYPE_DESKTOP",
	"_NET_WM_WINDOW_TYPE_DOCK",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// client is a thin wrapper over an X connection with interned EWMH atoms.
// xgb connections are safe for concurrent use and the atom map is
// read-only after construction.
type client struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

func newClient(display string) (*client, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	setup := xproto.Setup(conn)
	c := &client{
		conn:  conn,
		root:  setup.DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom, len(atomNames)),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to intern atom %s", name)
		}
		c.atoms[name] = reply.Atom
	}

	return c, nil
}

func (c *client) close() {
	c.conn.Close()
}

func (c *client) getProperty(window xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(c.conn, false, window, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (c *client) getActiveWindow() (xproto.Window, error) {
	data, err := c.getProperty(c.root, c.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err == nil && len(data) >= 4 {
		if w := xproto.Window(binary.LittleEndian.Uint32(data)); w != 0 {
			return w, nil
		}
	}

	reply, err := xproto.GetInputFocus(c.conn).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get input focus")
	}
	if reply.Focus == 0 || reply.Focus == c.root {
		return 0, errors.New("no active window found")
	}
	return c.getTopLevelParent(reply.Focus), nil
}

func (c *client) getTopLevelParent(window xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(c.conn, window).Reply()
		if err != nil || reply.Parent == c.root || reply.Parent == 0 {
			return window
		}
		window = reply.Parent
	}
}

func (c *client) getClientList() ([]xproto.Window, error) {
	data, err := c.getProperty(c.root, c.atoms["_NET_CLIENT_LIST"], xproto.AtomWindow, 4096)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read _NET_CLIENT_LIST")
	}
	ids := decodeUint32s(data)
	windows := make([]xproto.Window, len(ids))
	for i, id := range ids {
		windows[i] = xproto.Window(id)
	}
	return windows, nil
}

func (c *client) getWindowName(window xproto.Window) string {
	data, err := c.getProperty(window, c.atoms["_NET_WM_NAME"], c.atoms["UTF8_STRING"], 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	data, err = c.getProperty(window, c.atoms["WM_NAME"], xproto.AtomString, 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	return ""
}

func (c *client) getWindowClass(window xproto.Window) (instance, class string) {
	data, err := c.getProperty(window, c.atoms["WM_CLASS"], xproto.AtomString, 256)
	if err != nil {
		return "", ""
	}
	return parseWMClass(data)
}

func (c *client) getWindowPID(window xproto.Window) uint32 {
	data, err := c.getProperty(window, c.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(data)
}

func (c *client) getAtoms(window xproto.Window, property string) map[xproto.Atom]bool {
	data, err := c.getProperty(window, c.atoms[property], xproto.AtomAtom, 64)
	if err != nil {
		return nil
	}
	set := make(map[xproto.Atom]bool)
	for _, v := range decodeUint32s(data) {
		set[xproto.Atom(v)] = true
	}
	return set
}

// closeWindow sends the EWMH _NET_CLOSE_WINDOW request, acting as a pager
func (c *client) closeWindow(window xproto.Window) error {
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: window,
		Type:   c.atoms["_NET_CLOSE_WINDOW"],
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{0, 2, 0, 0, 0}),
	}

	mask := uint32(xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify)
	err := xproto.SendEventChecked(c.conn, false, c.root, mask, string(ev.Bytes())).Check()
	if err != nil {
		return errors.Wrapf(err, "failed to close window 0x%x", uint32(window))
	}
	return nil
}

// parseWMClass splits the NUL separated "instance\0class\0" property
func parseWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}

func decodeUint32s(data []byte) []uint32 {
	out := make([]uint32, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		out = append(out, binary.LittleEndian.Uint32(data[i:]))
	}
	return out
}
