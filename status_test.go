package depthcount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/swdee/go-depthcount/counter"
)

func TestStatusJSON(t *testing.T) {

	js := Status{
		Counts:  counter.State{In: 3, Out: 7},
		Tracks:  2,
		Frame:   900,
		Running: true,
	}.JSON()

	r := gjson.Parse(js)

	assert.Equal(t, int64(3), r.Get("in").Int())
	assert.Equal(t, int64(7), r.Get("out").Int())
	assert.Equal(t, int64(2), r.Get("tracks").Int())
	assert.Equal(t, uint64(900), r.Get("frame").Uint())
	assert.True(t, r.Get("running").Bool())
	assert.False(t, r.Get("session").Exists())
}
