package rest

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/textadventure/server/audit"
	"github.com/kasuganosora/textadventure/server/game/item"
	"github.com/kasuganosora/textadventure/server/game/session"
	mw "github.com/kasuganosora/textadventure/server/middleware"
	"github.com/kasuganosora/textadventure/server/notify"
	"github.com/kasuganosora/textadventure/server/save"
)

// SessionHandler exposes play sessions over REST. Every route acts on a
// session owned by the authenticated account.
type SessionHandler struct {
	mgr         *session.Manager
	store       *save.Store
	disp        *notify.Dispatcher
	audit       *audit.Service
	defaultName string
	logger      *zap.Logger

	genMu sync.Mutex
	gen   *item.Generator
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(
	mgr *session.Manager,
	store *save.Store,
	disp *notify.Dispatcher,
	auditSvc *audit.Service,
	gen *item.Generator,
	defaultName string,
	logger *zap.Logger,
) *SessionHandler {
	if gen == nil {
		gen = item.NewGenerator(nil)
	}
	return &SessionHandler{
		mgr:         mgr,
		store:       store,
		disp:        disp,
		audit:       auditSvc,
		gen:         gen,
		defaultName: defaultName,
		logger:      logger,
	}
}

type startRequest struct {
	Name string `json:"name" binding:"max=32"`
}

type amountRequest struct {
	Amount *int `json:"amount" binding:"required"`
}

type moveRequest struct {
	Direction string `json:"direction" binding:"required"`
}

type sceneRequest struct {
	SceneID string `json:"scene_id" binding:"required"`
}

type itemRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

type progressRequest struct {
	ObjectiveID string `json:"objective_id" binding:"required"`
	Progress    int    `json:"progress" binding:"min=0"`
}

// session resolves :id to a session of the caller, writing 404 if absent.
func (h *SessionHandler) session(c *gin.Context) (*session.Session, bool) {
	sess, err := h.mgr.GetOwned(c.Param("id"), mw.GetAccountID(c))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return sess, true
}

// record writes an audit entry for a mutation.
func (h *SessionHandler) record(c *gin.Context, sess *session.Session, action string, req, resp any, err error, start time.Time) {
	if h.audit == nil {
		return
	}
	accountID := sess.AccountID
	e := audit.Entry{
		TraceID:    mw.GetTraceID(c),
		SessionID:  sess.ID,
		AccountID:  &accountID,
		Action:     action,
		Request:    req,
		Response:   resp,
		IP:         c.ClientIP(),
		SceneID:    sess.SceneID(),
		DurationMs: int(time.Since(start).Milliseconds()),
	}
	if ch := sess.Character(); ch != nil {
		e.CharID = ch.ID
		e.CharName = ch.Name
	}
	if err != nil {
		e.Error = err.Error()
	}
	h.audit.Log(e)
}

// respond audits the mutation and writes either the error or the
// session snapshot merged with extra fields.
func (h *SessionHandler) respond(c *gin.Context, sess *session.Session, action string, req any, extra gin.H, err error, start time.Time) {
	h.record(c, sess, action, req, extra, err, start)
	if err != nil {
		fail(c, err)
		return
	}
	out := gin.H{"session": sess.Snapshot()}
	for k, v := range extra {
		out[k] = v
	}
	c.JSON(http.StatusOK, out)
}

// Start handles POST /api/sessions.
func (h *SessionHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Name == "" {
		req.Name = h.defaultName
	}
	start := time.Now()
	sess, err := h.mgr.Start(mw.GetAccountID(c), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	h.record(c, sess, "session.start", req, nil, nil, start)
	c.JSON(http.StatusCreated, gin.H{"session": sess.Snapshot()})
}

// List handles GET /api/sessions.
func (h *SessionHandler) List(c *gin.Context) {
	sessions := h.mgr.ByAccount(mw.GetAccountID(c))
	out := make([]map[string]any, len(sessions))
	for i, s := range sessions {
		out[i] = s.Snapshot()
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// Get handles GET /api/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess.Snapshot()})
}

// Close handles DELETE /api/sessions/:id. Unsaved progress is written
// before the session is dropped.
func (h *SessionHandler) Close(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if cp, ok := sess.Checkpoint(); ok && cp.Dirty {
		if _, err := h.store.SaveSession(ctx, sess); err != nil {
			fail(c, err)
			return
		}
	}
	h.mgr.Remove(sess.ID)
	if err := h.disp.Forget(ctx, sess.ID); err != nil {
		h.logger.Warn("forget session events", zap.String("session_id", sess.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Pause handles POST /api/sessions/:id/pause.
func (h *SessionHandler) Pause(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	start := time.Now()
	h.respond(c, sess, "session.pause", nil, nil, sess.Pause(), start)
}

// Resume handles POST /api/sessions/:id/resume.
func (h *SessionHandler) Resume(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	start := time.Now()
	h.respond(c, sess, "session.resume", nil, nil, sess.Resume(), start)
}

// End handles POST /api/sessions/:id/end.
func (h *SessionHandler) End(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	start := time.Now()
	h.respond(c, sess, "session.end", nil, nil, sess.End(), start)
}

// Move handles POST /api/sessions/:id/move.
func (h *SessionHandler) Move(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start := time.Now()
	to, err := sess.Move(req.Direction)
	h.respond(c, sess, "scene.move", req, gin.H{"scene_id": to}, err, start)
}

// ChangeScene handles POST /api/sessions/:id/scene.
func (h *SessionHandler) ChangeScene(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req sceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start := time.Now()
	h.respond(c, sess, "scene.change", req, nil, sess.ChangeScene(req.SceneID), start)
}

// Experience handles POST /api/sessions/:id/experience.
func (h *SessionHandler) Experience(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start := time.Now()
	leveled, err := sess.AddExperience(*req.Amount)
	h.respond(c, sess, "character.experience", req, gin.H{"leveled_up": leveled}, err, start)
}

// Damage handles POST /api/sessions/:id/damage.
func (h *SessionHandler) Damage(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start := time.Now()
	dead, err := sess.TakeDamage(*req.Amount)
	h.respond(c, sess, "character.damage", req, gin.H{"dead": dead}, err, start)
}

// Heal handles POST /api/sessions/:id/heal.
func (h *SessionHandler) Heal(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start := time.Now()
	h.respond(c, sess, "character.heal", req, nil, sess.Heal(*req.Amount), start)
}

// AddItem handles POST /api/sessions/:id/items. The body is an item view.
func (h *SessionHandler) AddItem(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	it, err := item.FromView(body)
	if err != nil {
		badRequest(c, err)
		return
	}
	start := time.Now()
	h.respond(c, sess, "item.add", body, gin.H{"item": it.ToView()}, sess.AddItem(it), start)
}

// RemoveItem handles DELETE /api/sessions/:id/items/:item_id.
func (h *SessionHandler) RemoveItem(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	itemID := c.Param("item_id")
	start := time.Now()
	n, err := sess.RemoveItem(itemID)
	h.respond(c, sess, "item.remove", gin.H{"item_id": itemID}, gin.H{"removed": n}, err, start)
}

// UseItem handles POST /api/sessions/:id/use.
func (h *SessionHandler) UseItem(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start := time.Now()
	res, err := sess.UseItem(req.ItemID)
	h.respond(c, sess, "item.use", req, gin.H{"used": res}, err, start)
}

// PickUp handles POST /api/sessions/:id/pickup.
func (h *SessionHandler) PickUp(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start := time.Now()
	it, err := sess.PickUp(req.ItemID)
	h.respond(c, sess, "item.pickup", req, gin.H{"item": it.ToView()}, err, start)
}

// Loot handles POST /api/sessions/:id/loot: a random item scaled to the
// character's level goes into the inventory.
func (h *SessionHandler) Loot(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	level := 1
	if ch := sess.Character(); ch != nil {
		level = ch.Level
	}
	h.genMu.Lock()
	it := h.gen.Random(level)
	h.genMu.Unlock()

	start := time.Now()
	h.respond(c, sess, "item.loot", nil, gin.H{"item": it.ToView()}, sess.AddItem(it), start)
}

// Quests handles GET /api/sessions/:id/quests.
func (h *SessionHandler) Quests(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	views := make([]map[string]any, 0)
	for _, q := range sess.Quests() {
		v := q.ToView()
		v["progress_pct"] = q.ProgressPercentage()
		views = append(views, v)
	}
	c.JSON(http.StatusOK, gin.H{"quests": views})
}

// AcceptQuest handles POST /api/sessions/:id/quests/:qid/accept.
func (h *SessionHandler) AcceptQuest(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	qid := c.Param("qid")
	start := time.Now()
	q, err := sess.AcceptQuest(qid)
	h.respond(c, sess, "quest.accept", gin.H{"quest_id": qid}, gin.H{"quest": q.ToView()}, err, start)
}

// ProgressQuest handles POST /api/sessions/:id/quests/:qid/progress.
func (h *SessionHandler) ProgressQuest(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	qid := c.Param("qid")
	start := time.Now()
	q, err := sess.ProgressQuest(qid, req.ObjectiveID, req.Progress)
	h.respond(c, sess, "quest.progress", req, gin.H{"quest": q.ToView()}, err, start)
}

// TurnInQuest handles POST /api/sessions/:id/quests/:qid/turn-in.
func (h *SessionHandler) TurnInQuest(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	qid := c.Param("qid")
	start := time.Now()
	res, err := sess.TurnInQuest(qid)
	h.respond(c, sess, "quest.turn_in", gin.H{"quest_id": qid}, gin.H{
		"quest":      res.Quest.ToView(),
		"leveled_up": res.LeveledUp,
	}, err, start)
}

// Save handles POST /api/sessions/:id/save.
func (h *SessionHandler) Save(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	start := time.Now()
	saveID, err := h.store.SaveSession(c.Request.Context(), sess)
	h.respond(c, sess, "session.save", nil, gin.H{"save_id": saveID}, err, start)
}

// Events handles GET /api/sessions/:id/events?limit=20.
func (h *SessionHandler) Events(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}
	events, err := h.disp.Recent(c.Request.Context(), sess.ID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
