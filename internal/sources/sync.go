package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"observatorio-backend/internal/components/chrono"
)

const (
	keyLastSync     = "ultima_sincronizacao"
	keySourceStatus = "status_das_fontes"
	keyOrigin       = "fonte_origem"

	originVerified  = "Multi-Base Verificada"
	originProtected = "Base Local Protegida"
)

// localTimestampLayout is how dates are written for pt-BR readers, ex. "04/03/2025, 09:30:00".
const localTimestampLayout = "02/01/2006, 15:04:05"

// object is a json object that keeps the order of its keys, the metadata file is edited
// by hand and a sync must not reshuffle it.
type object struct {
	keys   []string
	values map[string]json.RawMessage
}

func parseObject(data []byte) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected a json object")
	}

	obj := &object{values: map[string]json.RawMessage{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		err = dec.Decode(&value)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", key, err)
		}
		if _, exists := obj.values[key]; !exists {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func (o *object) set(key string, value any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(value)
	if err != nil {
		return err
	}
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = bytes.TrimSpace(buf.Bytes())
	return nil
}

func (o *object) marshalIndent() ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			compact.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		compact.Write(encodedKey)
		compact.WriteByte(':')
		compact.Write(o.values[key])
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	err := json.Indent(&out, compact.Bytes(), "", "  ")
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

type SyncResult struct {
	Statuses []Status
	Origin   string
	SyncedAt string
}

// Sync checks every source and stamps the outcome into the json object at `path`. Every
// other key of the file is left as it was.
func (c *Checker) Sync(ctx context.Context, path string) (SyncResult, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return SyncResult{}, err
	}
	obj, err := parseObject(contents)
	if err != nil {
		return SyncResult{}, fmt.Errorf("parse %s: %w", path, err)
	}

	statuses := c.Check(ctx)
	if err := ctx.Err(); err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{
		Statuses: statuses,
		Origin:   originProtected,
		SyncedAt: formatLocal(c.clock),
	}
	if AnyOnline(statuses) {
		result.Origin = originVerified
	}

	lines := make([]string, len(statuses))
	for i, s := range statuses {
		lines[i] = s.String()
	}

	for _, kv := range []struct {
		key   string
		value any
	}{
		{keyLastSync, result.SyncedAt},
		{keySourceStatus, lines},
		{keyOrigin, result.Origin},
	} {
		err = obj.set(kv.key, kv.value)
		if err != nil {
			return SyncResult{}, err
		}
	}

	serialized, err := obj.marshalIndent()
	if err != nil {
		return SyncResult{}, err
	}
	err = os.WriteFile(path, serialized, 0644)
	if err != nil {
		return SyncResult{}, err
	}

	c.tel.ReportInfo("synced", path, result.Origin)
	return result, nil
}

func formatLocal(clock chrono.API) string {
	return clock.Now().In(clock.Location()).Format(localTimestampLayout)
}

// Watch runs Sync on `spec` until ctx is done. A failed sync is reported and the schedule
// keeps going.
func (c *Checker) Watch(ctx context.Context, cron chrono.CronAPI, spec, path string) error {
	err := cron.Cron(spec, func() {
		_, err := c.Sync(ctx, path)
		if err != nil && ctx.Err() == nil {
			c.tel.ReportBroken(report_checker_sync, err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	c.tel.ReportInfo("watching", path, spec)

	<-ctx.Done()
	cron.Stop()
	c.tel.ReportDebug(report_checker_watch, "stopped")
	return nil
}
