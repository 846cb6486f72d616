package transport

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBindAndPublishDeliversToSubscriber(t *testing.T) {
	assert := assert.New(t)

	pub, err := Bind("tcp://*:0")
	assert.NoError(err)
	defer pub.Close()

	addr := pub.ln.Addr().String()
	conn, err := net.Dial("tcp", addr)
	assert.NoError(err)
	defer conn.Close()

	// give the accept loop a moment to register the connection.
	time.Sleep(20 * time.Millisecond)

	rec := &Record{Ideal: Pose{X: 1, Y: 2, Theta: 3}}
	assert.NoError(pub.Publish(rec))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	assert.NoError(err)
	assert.Contains(line, `"x":1`)
}

func TestToListenAddrStripsWildcardScheme(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(":5556", toListenAddr("tcp://*:5556"))
	assert.Equal(":0", toListenAddr(":0"))
}
