package probe

import (
	"testing"

	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountByPidAndPortRange_FiltersByPid(t *testing.T) {
	pid1, pid2 := int32(100), int32(200)
	conns := []gnet.ConnectionStat{
		{Pid: pid1, Laddr: gnet.Addr{Port: 8080}},
		{Pid: pid1, Laddr: gnet.Addr{Port: 8081}},
		{Pid: pid2, Laddr: gnet.Addr{Port: 9090}},
	}

	assert.Equal(t, 2, countByPidAndPortRange(conns, &pid1, 0, 0))
	assert.Equal(t, 1, countByPidAndPortRange(conns, &pid2, 0, 0))
	assert.Equal(t, 3, countByPidAndPortRange(conns, nil, 0, 0))
}

func TestCountByPidAndPortRange_FiltersByEphemeralRange(t *testing.T) {
	conns := []gnet.ConnectionStat{
		{Laddr: gnet.Addr{Port: 443}},
		{Laddr: gnet.Addr{Port: 40000}},
		{Laddr: gnet.Addr{Port: 50000}},
	}

	assert.Equal(t, 2, countByPidAndPortRange(conns, nil, 32768, 60999))
}

func TestFabricAppPortRangeForNodeType(t *testing.T) {
	manifest := `<ClusterManifest><NodeTypes>
		<NodeType Name="Worker">
			<Endpoints>
				<ApplicationEndpoints ApplicationPortRange="30000-30999" />
			</Endpoints>
		</NodeType>
	</NodeTypes></ClusterManifest>`

	p := New()
	low, high, err := p.FabricAppPortRangeForNodeType("Worker", manifest)
	require.NoError(t, err)
	assert.Equal(t, 30000, low)
	assert.Equal(t, 30999, high)
}

func TestFabricAppPortRangeForNodeType_NotFound(t *testing.T) {
	p := New()
	_, _, err := p.FabricAppPortRangeForNodeType("Missing", "<ClusterManifest></ClusterManifest>")
	assert.Error(t, err)
}
