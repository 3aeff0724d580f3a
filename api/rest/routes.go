package rest

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kasuganosora/textadventure/server/audit"
	"github.com/kasuganosora/textadventure/server/cache"
	"github.com/kasuganosora/textadventure/server/config"
	"github.com/kasuganosora/textadventure/server/game/item"
	"github.com/kasuganosora/textadventure/server/game/session"
	mw "github.com/kasuganosora/textadventure/server/middleware"
	"github.com/kasuganosora/textadventure/server/notify"
	"github.com/kasuganosora/textadventure/server/ranking"
	"github.com/kasuganosora/textadventure/server/save"
	"github.com/kasuganosora/textadventure/server/scheduler"
)

// Deps bundles what the REST handlers are built from.
type Deps struct {
	Config     *config.Config
	DB         *gorm.DB
	Cache      cache.Cache
	Sessions   *session.Manager
	Saves      *save.Store
	Ranking    *ranking.Board
	Dispatcher *notify.Dispatcher
	Audit      *audit.Service
	Scheduler  *scheduler.Scheduler
	Loot       *item.Generator
	Logger     *zap.Logger
}

// Mount registers every REST route on r.
func Mount(r gin.IRouter, d Deps) {
	sec := d.Config.Security
	authH := NewAuthHandler(d.DB, d.Cache, sec, d.Logger)
	sessH := NewSessionHandler(d.Sessions, d.Saves, d.Dispatcher, d.Audit, d.Loot, d.Config.Game.DefaultName, d.Logger)
	saveH := NewSaveHandler(d.Saves, d.Sessions, d.Logger)
	contentH := NewContentHandler(d.Sessions.World())
	rankH := NewRankingHandler(d.Ranking, d.Logger)
	adminH := NewAdminHandler(d.DB, d.Sessions, d.Saves, d.Ranking, d.Dispatcher, d.Scheduler, d.Logger)

	api := r.Group("/api")
	api.POST("/auth/login", authH.Login)
	api.GET("/scenes", contentH.Scenes)
	api.GET("/scenes/:id", contentH.Scene)
	api.GET("/ranking/level", rankH.TopLevel)

	authed := api.Group("", mw.Auth(sec, d.Cache))
	authed.POST("/auth/logout", authH.Logout)
	authed.POST("/auth/refresh", authH.Refresh)

	authed.POST("/sessions", sessH.Start)
	authed.GET("/sessions", sessH.List)
	s := authed.Group("/sessions/:id")
	s.GET("", sessH.Get)
	s.DELETE("", sessH.Close)
	s.POST("/pause", sessH.Pause)
	s.POST("/resume", sessH.Resume)
	s.POST("/end", sessH.End)
	s.POST("/move", sessH.Move)
	s.POST("/scene", sessH.ChangeScene)
	s.POST("/experience", sessH.Experience)
	s.POST("/damage", sessH.Damage)
	s.POST("/heal", sessH.Heal)
	s.POST("/items", sessH.AddItem)
	s.DELETE("/items/:item_id", sessH.RemoveItem)
	s.POST("/use", sessH.UseItem)
	s.POST("/pickup", sessH.PickUp)
	s.POST("/loot", sessH.Loot)
	s.GET("/quests", sessH.Quests)
	s.POST("/quests/:qid/accept", sessH.AcceptQuest)
	s.POST("/quests/:qid/progress", sessH.ProgressQuest)
	s.POST("/quests/:qid/turn-in", sessH.TurnInQuest)
	s.POST("/save", sessH.Save)
	s.GET("/events", sessH.Events)

	authed.GET("/saves", saveH.List)
	authed.POST("/saves/:id/load", saveH.Load)
	authed.DELETE("/saves/:id", saveH.Delete)

	admin := api.Group("/admin",
		mw.IPWhitelist(sec.AdminIPs, d.Logger),
		AdminAuth(d.Config.Server.AdminKey))
	admin.GET("/metrics", adminH.Metrics)
	admin.GET("/sessions", adminH.ListSessions)
	admin.POST("/sessions/:id/kick", adminH.KickSession)
	admin.POST("/accounts/:id/ban", adminH.BanAccount)
	admin.POST("/announce", adminH.Announce)
	admin.POST("/ranking/rebuild", adminH.RebuildRanking)
	admin.GET("/scheduler", adminH.ListSchedulerTasks)
	admin.POST("/scheduler/:name/run", adminH.RunTask)
}
