// Package mm implements the illustrative Material Management "MM"
// worker, a Majordomo worker that itself acts as a Majordomo client to a
// second broker fronting the document-store worker — the same two-hop
// chain mm_worker.c builds against mongodb_worker.c (spec.md §9's
// supplement note: this topology, not just the Titanic core, is carried
// into SPEC_FULL.md to keep the example's shape faithful).
package mm

import (
	log "github.com/sirupsen/logrus"

	mdp "github.com/grassroot72/smamp/broker/client"
	"github.com/grassroot72/smamp/broker/protocol"
	"github.com/grassroot72/smamp/docstore"
)

// ServiceName is the broker service name this worker registers under.
const ServiceName = "MM"

// poCollection is the sole collection this demo engine operates
// against, matching mm_worker.c's hardcoded "Coll_PO".
const poCollection = "Coll_PO"

// Operation names carried in the first request frame, unchanged from
// mm_worker.c.
const (
	OpSave   = "POSave"
	OpSelect = "POSelect"
	OpUpdate = "POUpdate"
	OpDelete = "PODelete"
)

// Engine is the MM worker's request handler. It holds no broker session
// of its own: Run is given the client-facing worker session, and each
// document-store call dials its own short-lived client (see crud).
type Engine struct {
	DB  string
	Log *log.Logger

	docstoreEndpoint string
}

// NewEngine returns an Engine that forwards document-store operations to
// docstoreEndpoint, scoped to database db (mm_worker.c hardcodes "mydb";
// here "mydb" is only the default, used when db is empty).
func NewEngine(db, docstoreEndpoint string, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if db == "" {
		db = "mydb"
	}
	return &Engine{DB: db, Log: logger, docstoreEndpoint: docstoreEndpoint}
}

// Run processes requests from worker until shutdown or a broker error.
// Each request dials a fresh docstore client session, the same
// open-once-per-call pattern titanic's dispatcher uses, rather than
// holding one long-lived session the way mm_worker.c's to_mongodb
// session does — matching this repo's "borrow a connection per request"
// broker client discipline instead of a pinned worker-lifetime session.
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

func (e *Engine) handle(frames protocol.Frames) protocol.Frames {
	operation := string(frames[0])
	rest := frames[1:]

	switch operation {
	case OpSave:
		return e.save(rest)
	case OpSelect:
		return e.selectPOs(rest)
	case OpUpdate:
		return e.update(rest)
	case OpDelete:
		return e.delete(rest)
	default:
		e.Log.WithField("operation", operation).Error("mm: unknown operation")
		return protocol.Frames{[]byte("unknown operation")}
	}
}

// crud mirrors s_mongodb_crud: it assembles [db, collection, operation,
// query, update?] and round-trips it through the document-store
// service.
func (e *Engine) crud(operation string, query []byte, update []byte) (protocol.Frames, error) {
	c, err := mdp.NewClient(e.docstoreEndpoint)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	request := protocol.Frames{[]byte(e.DB), []byte(poCollection), []byte(operation), query}
	if update != nil {
		request = append(request, update)
	}

	if err := c.Send(docstore.ServiceName, request); err != nil {
		return nil, err
	}
	return c.Recv()
}

func (e *Engine) save(rest protocol.Frames) protocol.Frames {
	if len(rest) < 1 {
		return protocol.Frames{[]byte("missing document")}
	}
	reply, err := e.crud(docstore.Create, rest[0], nil)
	if err != nil {
		e.Log.WithError(err).Error("mm: POSave")
		return protocol.Frames{[]byte("creating document failed.")}
	}
	if len(reply) > 0 && string(reply[0]) == protocol.StatusOK {
		return protocol.Frames{[]byte("One document created.")}
	}
	return protocol.Frames{[]byte("creating document failed.")}
}

func (e *Engine) selectPOs(rest protocol.Frames) protocol.Frames {
	if len(rest) < 1 {
		return protocol.Frames{[]byte("missing query")}
	}
	reply, err := e.crud(docstore.Retrieve, rest[0], nil)
	if err != nil {
		e.Log.WithError(err).Error("mm: POSelect")
		return protocol.Frames{[]byte("Nothing selected")}
	}
	if len(reply) == 0 {
		return protocol.Frames{[]byte("Nothing selected")}
	}
	return reply
}

func (e *Engine) update(rest protocol.Frames) protocol.Frames {
	if len(rest) < 2 {
		return protocol.Frames{[]byte("missing query or update")}
	}
	reply, err := e.crud(docstore.Update, rest[0], rest[1])
	if err != nil {
		e.Log.WithError(err).Error("mm: POUpdate")
		return protocol.Frames{[]byte("Updating document failed.")}
	}
	if len(reply) > 0 && string(reply[0]) == protocol.StatusOK {
		return protocol.Frames{[]byte("One document updated.")}
	}
	return protocol.Frames{[]byte("Updating document failed.")}
}

func (e *Engine) delete(rest protocol.Frames) protocol.Frames {
	if len(rest) < 1 {
		return protocol.Frames{[]byte("missing query")}
	}
	reply, err := e.crud(docstore.Delete, rest[0], nil)
	if err != nil {
		e.Log.WithError(err).Error("mm: PODelete")
		return protocol.Frames{[]byte("Deleting document failed.")}
	}
	if len(reply) > 0 && string(reply[0]) == protocol.StatusOK {
		return protocol.Frames{[]byte("One document deleted.")}
	}
	return protocol.Frames{[]byte("Deleting document failed.")}
}
