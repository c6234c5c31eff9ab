package dbclient

import (
	"context"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/sonic-net/dpbreakout/pkg/util"
)

// asicDBIndex is the Redis logical database index SONiC reserves for
// ASIC_DB, where SAI_OBJECT_TYPE_* keys mirror what is actually programmed
// in hardware.
const asicDBIndex = 1

// countersDBIndex is the Redis logical database index for COUNTERS_DB,
// which carries the COUNTERS_PORT_NAME_MAP hash used to resolve a port
// name to its SAI object OID.
const countersDBIndex = 2

// portNameMapKey is the COUNTERS_DB hash mapping port name -> SAI port OID
// ("oid:0x<hex>").
const portNameMapKey = "COUNTERS_PORT_NAME_MAP"

// oidPrefix is stripped from COUNTERS_PORT_NAME_MAP values by
// GetInterfaceOidMap, leaving the bare hex OID.
const oidPrefix = "oid:0x"

// asicPortKeyPrefix is the ASIC_DB key prefix for a SAI port object.
const asicPortKeyPrefix = "ASIC_STATE:SAI_OBJECT_TYPE_PORT:oid:0x"

// AsicDBClient wraps a Redis client bound to ASIC_DB (logical DB 1), plus
// a secondary connection to COUNTERS_DB (logical DB 2) for resolving the
// port-name-to-OID map the orchestrator needs before it can poll per-port
// ASIC_DB keys.
type AsicDBClient struct {
	client         *redis.Client
	countersClient *redis.Client
	ctx            context.Context
}

// NewAsicDBClient creates a client for the asic_db at addr (host:port).
func NewAsicDBClient(addr string) *AsicDBClient {
	return &AsicDBClient{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   asicDBIndex,
		}),
		countersClient: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   countersDBIndex,
		}),
		ctx: context.Background(),
	}
}

// Connect verifies connectivity to both ASIC_DB and COUNTERS_DB.
func (c *AsicDBClient) Connect() error {
	if err := c.client.Ping(c.ctx).Err(); err != nil {
		return util.NewDBIOError("asicdb", "ping", err)
	}
	if err := c.countersClient.Ping(c.ctx).Err(); err != nil {
		return util.NewDBIOError("asicdb", "ping counters_db", err)
	}
	return nil
}

// Close releases both underlying Redis connections.
func (c *AsicDBClient) Close() error {
	err1 := c.client.Close()
	err2 := c.countersClient.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Exists reports whether a raw ASIC_DB key is present, e.g.
// "ASIC_STATE:SAI_OBJECT_TYPE_PORT:oid:0x1000000000001".
func (c *AsicDBClient) Exists(key string) (bool, error) {
	util.Logger.Debugf("redis-cli -n %d EXISTS %s", asicDBIndex, key)
	n, err := c.client.Exists(c.ctx, key).Result()
	if err != nil {
		return false, util.NewDBIOError("asicdb", "exists "+key, err)
	}
	return n > 0, nil
}

// GetInterfaceOidMap returns the port-name<->OID mapping COUNTERS_DB keeps
// in COUNTERS_PORT_NAME_MAP, with each OID reduced to bare hex (the
// "oid:0x" prefix stripped). The orchestrator captures this map once,
// before any write, and uses it for the rest of the transaction — a port
// the transaction is about to delete still has a valid OID right up until
// the ASIC actually releases it.
func (c *AsicDBClient) GetInterfaceOidMap() (nameToOid map[string]string, oidToName map[string]string, err error) {
	vals, err := c.countersClient.HGetAll(c.ctx, portNameMapKey).Result()
	if err != nil {
		return nil, nil, util.NewDBIOError("countersdb", "hgetall "+portNameMapKey, err)
	}
	nameToOid = make(map[string]string, len(vals))
	oidToName = make(map[string]string, len(vals))
	for name, oid := range vals {
		if !strings.HasPrefix(name, "Ethernet") {
			continue
		}
		oid = strings.TrimPrefix(oid, oidPrefix)
		nameToOid[name] = oid
		oidToName[oid] = name
	}
	return nameToOid, oidToName, nil
}

// AsicPortKey builds the ASIC_STATE key for a port's SAI object given its
// bare hex OID, as returned by GetInterfaceOidMap.
func AsicPortKey(oid string) string {
	return asicPortKeyPrefix + oid
}
