package docstore

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"

	mdp "github.com/grassroot72/smamp/broker/client"
	"github.com/grassroot72/smamp/broker/protocol"
	"github.com/grassroot72/smamp/titanic"
)

// ServiceName is the broker service name this worker registers under,
// kept as the literal "MongoDB" from mongodb_worker.c for fidelity to
// the original, even though the backing engine is now RocksDB.
const ServiceName = "MongoDB"

// Create, Retrieve, Update and Delete are the CRUD operation names
// carried in the operation frame, unchanged from mongodb_worker.c.
const (
	Create   = "CREATE"
	Retrieve = "RETRIEVE"
	Update   = "UPDATE"
	Delete   = "DELETE"
)

// Engine is the document-store worker: it registers as ServiceName and
// answers CRUD requests forwarded by mm.Engine, mirroring
// mongodb_worker.c's s_mongodb_handle_request dispatch.
type Engine struct {
	Store *Store
	Log   *log.Logger
}

// NewEngine returns an Engine backed by store.
func NewEngine(store *Store, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Engine{Store: store, Log: logger}
}

// Run processes requests from worker until shutdown or a broker error.
func (e *Engine) Run(worker *mdp.Worker) error {
	for {
		frames, replyTo, err := worker.Recv()
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			continue
		}
		if string(frames[0]) == protocol.Shutdown {
			return nil
		}

		report := e.handle(frames)
		if err := worker.Send(replyTo, report); err != nil {
			return err
		}
	}
}

// handle implements the same db/collection/operation dispatch as
// s_mongodb_handle_request, one method per operation below.
func (e *Engine) handle(frames protocol.Frames) protocol.Frames {
	if len(frames) < 3 {
		e.Log.Error("docstore: malformed request, expected db/collection/operation")
		return protocol.Frames{[]byte("malformed request")}
	}

	db := string(frames[0])
	collection := string(frames[1])
	operation := string(frames[2])
	rest := frames[3:]

	switch operation {
	case Create:
		return e.create(db, collection, rest)
	case Retrieve:
		return e.retrieve(db, collection, rest)
	case Update:
		return e.update(db, collection, rest)
	case Delete:
		return e.delete(db, collection, rest)
	default:
		e.Log.WithField("operation", operation).Error("docstore: unknown operation")
		return protocol.Frames{[]byte("unknown operation")}
	}
}

func (e *Engine) create(db, collection string, rest protocol.Frames) protocol.Frames {
	if len(rest) < 1 {
		return protocol.Frames{[]byte("missing document")}
	}
	id, err := titanic.NewUUID()
	if err != nil {
		e.Log.WithError(err).Error("docstore: generating id")
		return protocol.Frames{[]byte("id generation failed")}
	}
	if err := e.Store.Put(db, collection, id, rest[0]); err != nil {
		e.Log.WithError(err).Error("docstore: create")
		return protocol.Frames{[]byte(err.Error())}
	}
	return protocol.Frames{[]byte(protocol.StatusOK)}
}

func (e *Engine) retrieve(db, collection string, rest protocol.Frames) protocol.Frames {
	if len(rest) < 1 {
		return protocol.Frames{[]byte("missing query")}
	}
	query, err := unmarshalObject(rest[0])
	if err != nil {
		return protocol.Frames{[]byte("invalid query json")}
	}

	var report protocol.Frames
	scanErr := e.Store.ScanCollection(db, collection, func(id string, raw []byte) bool {
		doc, err := unmarshalObject(raw)
		if err != nil {
			return true
		}
		if match(doc, query) {
			report = append(report, raw)
		}
		return true
	})
	if scanErr != nil {
		e.Log.WithError(scanErr).Error("docstore: retrieve")
		return protocol.Frames{[]byte(scanErr.Error())}
	}
	return report
}

func (e *Engine) update(db, collection string, rest protocol.Frames) protocol.Frames {
	if len(rest) < 2 {
		return protocol.Frames{[]byte("missing query or update")}
	}
	query, err := unmarshalObject(rest[0])
	if err != nil {
		return protocol.Frames{[]byte("invalid query json")}
	}
	patch, err := unmarshalObject(rest[1])
	if err != nil {
		return protocol.Frames{[]byte("invalid update json")}
	}

	var (
		matchedID  string
		matchedDoc map[string]interface{}
	)
	scanErr := e.Store.ScanCollection(db, collection, func(id string, raw []byte) bool {
		doc, err := unmarshalObject(raw)
		if err != nil {
			return true
		}
		if match(doc, query) {
			matchedID, matchedDoc = id, doc
			return false
		}
		return true
	})
	if scanErr != nil {
		e.Log.WithError(scanErr).Error("docstore: update")
		return protocol.Frames{[]byte(scanErr.Error())}
	}
	if matchedDoc == nil {
		return protocol.Frames{[]byte(protocol.StatusUnknown)}
	}

	// Only the first found entry is updated, matching
	// mongodb_worker.c's s_mongodb_handle_update comment.
	for k, v := range patch {
		matchedDoc[k] = v
	}
	raw, err := json.Marshal(matchedDoc)
	if err != nil {
		return protocol.Frames{[]byte(err.Error())}
	}
	if err := e.Store.Put(db, collection, matchedID, raw); err != nil {
		e.Log.WithError(err).Error("docstore: update put")
		return protocol.Frames{[]byte(err.Error())}
	}
	return protocol.Frames{[]byte(protocol.StatusOK)}
}

func (e *Engine) delete(db, collection string, rest protocol.Frames) protocol.Frames {
	if len(rest) < 1 {
		return protocol.Frames{[]byte("missing query")}
	}
	query, err := unmarshalObject(rest[0])
	if err != nil {
		return protocol.Frames{[]byte("invalid query json")}
	}

	var matchedID string
	scanErr := e.Store.ScanCollection(db, collection, func(id string, raw []byte) bool {
		doc, err := unmarshalObject(raw)
		if err != nil {
			return true
		}
		if match(doc, query) {
			matchedID = id
			return false
		}
		return true
	})
	if scanErr != nil {
		e.Log.WithError(scanErr).Error("docstore: delete")
		return protocol.Frames{[]byte(scanErr.Error())}
	}
	if matchedID == "" {
		return protocol.Frames{[]byte(protocol.StatusUnknown)}
	}
	if err := e.Store.Delete(db, collection, matchedID); err != nil {
		e.Log.WithError(err).Error("docstore: delete")
		return protocol.Frames{[]byte(err.Error())}
	}
	return protocol.Frames{[]byte(protocol.StatusOK)}
}
