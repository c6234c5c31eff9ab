// Package dbclient talks to the Redis-backed SONiC state stores: Config DB
// (the intended configuration tree) and Asic DB (the realized SAI object
// state), plus the optional SSH tunnel used to reach either one on a remote
// switch.
package dbclient

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/sonic-net/dpbreakout/pkg/util"
)

// configDBIndex is the Redis logical database index SONiC reserves for
// CONFIG_DB.
const configDBIndex = 4

// listFieldSuffix marks a Redis hash field as a comma-joined list value,
// matching the "field@" convention SONiC's config_db schema uses for
// leaf-list attributes (e.g. "lanes@" -> "65,66,67,68").
const listFieldSuffix = "@"

// ConfigDBClient wraps a Redis client bound to CONFIG_DB (logical DB 4).
// Rows are read and written as a generic tree: table name -> row key ->
// field map, with "field@" hash fields decoded into string lists. This
// mirrors the shape the tree store, key searcher, diff and merge engines
// all operate on, rather than a struct fixed to one table layout.
type ConfigDBClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewConfigDBClient creates a client for the config_db at addr (host:port).
func NewConfigDBClient(addr string) *ConfigDBClient {
	return &ConfigDBClient{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   configDBIndex,
		}),
		ctx: context.Background(),
	}
}

// scanKeys iterates matching keys with SCAN instead of KEYS, avoiding a
// blocking O(n) scan of the whole keyspace on a large config_db.
func (c *ConfigDBClient) scanKeys(pattern string) ([]string, error) {
	var allKeys []string
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(c.ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return nil, err
		}
		allKeys = append(allKeys, keys...)
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return allKeys, nil
}

// Connect verifies connectivity to config_db.
func (c *ConfigDBClient) Connect() error {
	if err := c.client.Ping(c.ctx).Err(); err != nil {
		return util.NewDBIOError("configdb", "ping", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *ConfigDBClient) Close() error {
	return c.client.Close()
}

// GetAll reads every table in config_db into a generic tree keyed by table
// name, then by row key (row keys keep embedded "|" separators for
// composite keys like "Vlan100|Ethernet0" verbatim — the key searcher
// matches against that literal string).
func (c *ConfigDBClient) GetAll() (map[string]interface{}, error) {
	keys, err := c.scanKeys("*")
	if err != nil {
		return nil, util.NewDBIOError("configdb", "scan", err)
	}
	sort.Strings(keys)

	tree := make(map[string]interface{})
	for _, key := range keys {
		parts := strings.SplitN(key, "|", 2)
		if len(parts) < 2 {
			continue
		}
		table, rowKey := parts[0], parts[1]

		vals, err := c.client.HGetAll(c.ctx, key).Result()
		if err != nil {
			return nil, util.NewDBIOError("configdb", fmt.Sprintf("hgetall %s", key), err)
		}

		rows, ok := tree[table].(map[string]interface{})
		if !ok {
			rows = make(map[string]interface{})
			tree[table] = rows
		}
		rows[rowKey] = decodeFields(vals)
	}
	return tree, nil
}

// decodeFields turns a Redis hash into a field map, splitting "field@"
// entries into string lists and dropping the NULL:NULL field-less sentinel.
func decodeFields(vals map[string]string) map[string]interface{} {
	fields := make(map[string]interface{}, len(vals))
	for k, v := range vals {
		if k == "NULL" && v == "NULL" {
			continue
		}
		if strings.HasSuffix(k, listFieldSuffix) {
			name := strings.TrimSuffix(k, listFieldSuffix)
			if v == "" {
				fields[name] = []interface{}{}
				continue
			}
			parts := strings.Split(v, ",")
			items := make([]interface{}, len(parts))
			for i, p := range parts {
				items[i] = p
			}
			fields[name] = items
		} else {
			fields[k] = v
		}
	}
	return fields
}

// encodeFields is the inverse of decodeFields: lists are rejoined onto a
// "field@" hash field, scalars are stringified.
func encodeFields(fields map[string]interface{}) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		switch tv := v.(type) {
		case []interface{}:
			parts := make([]string, len(tv))
			for i, item := range tv {
				parts[i] = fmt.Sprintf("%v", item)
			}
			out[k+listFieldSuffix] = strings.Join(parts, ",")
		case nil:
			// handled by the caller as a field deletion; skip here.
		default:
			out[k] = fmt.Sprintf("%v", tv)
		}
	}
	return out
}

// Set writes a table row. A nil fields map (or one with no entries) still
// creates the Redis key via a "NULL":"NULL" sentinel field, matching
// SONiC's convention for field-less rows (e.g. PORTCHANNEL_MEMBER).
func (c *ConfigDBClient) Set(table, key string, fields map[string]interface{}) error {
	redisKey := table + "|" + key
	encoded := encodeFields(fields)
	if len(encoded) == 0 {
		if err := c.client.HSet(c.ctx, redisKey, "NULL", "NULL").Err(); err != nil {
			return util.NewDBIOError("configdb", "hset "+redisKey, err)
		}
		return nil
	}
	args := make([]interface{}, 0, len(encoded)*2)
	for k, v := range encoded {
		args = append(args, k, v)
	}
	if err := c.client.HSet(c.ctx, redisKey, args...).Err(); err != nil {
		return util.NewDBIOError("configdb", "hset "+redisKey, err)
	}
	return nil
}

// Delete removes an entire table row.
func (c *ConfigDBClient) Delete(table, key string) error {
	redisKey := table + "|" + key
	if err := c.client.Del(c.ctx, redisKey).Err(); err != nil {
		return util.NewDBIOError("configdb", "del "+redisKey, err)
	}
	return nil
}

// DeleteField clears a single field from a row, matching the diff engine's
// "[]"/null clear sentinel semantics once resolved to a concrete field name.
func (c *ConfigDBClient) DeleteField(table, key, field string) error {
	redisKey := table + "|" + key
	if err := c.client.HDel(c.ctx, redisKey, field, field+listFieldSuffix).Err(); err != nil {
		return util.NewDBIOError("configdb", "hdel "+redisKey, err)
	}
	return nil
}

// Get reads a single row's fields.
func (c *ConfigDBClient) Get(table, key string) (map[string]interface{}, error) {
	redisKey := table + "|" + key
	vals, err := c.client.HGetAll(c.ctx, redisKey).Result()
	if err != nil {
		return nil, util.NewDBIOError("configdb", "hgetall "+redisKey, err)
	}
	return decodeFields(vals), nil
}

// TableKeys returns the row keys present for a table, without their fields.
func (c *ConfigDBClient) TableKeys(table string) ([]string, error) {
	redisKeys, err := c.scanKeys(table + "|*")
	if err != nil {
		return nil, util.NewDBIOError("configdb", "scan "+table, err)
	}
	prefix := table + "|"
	out := make([]string, 0, len(redisKeys))
	for _, k := range redisKeys {
		out = append(out, strings.TrimPrefix(k, prefix))
	}
	sort.Strings(out)
	return out, nil
}

// Exists reports whether a table row exists.
func (c *ConfigDBClient) Exists(table, key string) (bool, error) {
	redisKey := table + "|" + key
	n, err := c.client.Exists(c.ctx, redisKey).Result()
	if err != nil {
		return false, util.NewDBIOError("configdb", "exists "+redisKey, err)
	}
	return n > 0, nil
}

// Apply writes a Config DB write payload (as synthesized by the diff
// engine) into Redis: a nil row deletes the table row, a row field set to
// nil or to an empty list deletes just that field, anything else is
// written in full.
func (c *ConfigDBClient) Apply(payload map[string]interface{}) error {
	for table, rowsVal := range payload {
		rows, ok := rowsVal.(map[string]interface{})
		if !ok {
			continue
		}
		for rowKey, rowVal := range rows {
			if rowVal == nil {
				if err := c.Delete(table, rowKey); err != nil {
					return err
				}
				continue
			}
			fields, ok := rowVal.(map[string]interface{})
			if !ok {
				continue
			}
			toDelete := make([]string, 0)
			toSet := make(map[string]interface{}, len(fields))
			for field, v := range fields {
				if v == nil {
					toDelete = append(toDelete, field)
					continue
				}
				if list, ok := v.([]interface{}); ok && len(list) == 0 {
					toDelete = append(toDelete, field)
					continue
				}
				toSet[field] = v
			}
			for _, field := range toDelete {
				if err := c.DeleteField(table, rowKey, field); err != nil {
					return err
				}
			}
			if len(toSet) > 0 {
				if err := c.Set(table, rowKey, toSet); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
