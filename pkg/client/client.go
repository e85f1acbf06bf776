// Package client is the interactive shell over the sync coordinator.
package client

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/wurt83ow/rosterkeeper/pkg/models"
	"github.com/wurt83ow/rosterkeeper/pkg/rating"
	"github.com/wurt83ow/rosterkeeper/pkg/services"
)

type RosterKeeper struct {
	ctx     context.Context
	rl      *readline.Instance
	service *services.Service
}

func NewClient(ctx context.Context, service *services.Service) *RosterKeeper {
	rl, err := readline.New("> ")
	if err != nil {
		log.Fatal(err)
	}
	return &RosterKeeper{ctx: ctx, rl: rl, service: service}
}

func (rk *RosterKeeper) Close() {
	rk.rl.Close()
}

// Start runs the command loop until exit or EOF.
func (rk *RosterKeeper) Start() {
	fmt.Println("rosterkeeper: type 'help' for commands")
	for {
		rk.rl.SetPrompt("> ")
		line, err := rk.rl.Readline()
		if err != nil {
			return
		}
		switch strings.TrimSpace(line) {
		case "help":
			rk.help()
		case "teams":
			rk.listTeams()
		case "players":
			rk.listPlayers()
		case "add-team":
			rk.addTeam()
		case "add-player":
			rk.addPlayer()
		case "del-player":
			rk.deletePlayer()
		case "sync":
			rk.syncNow()
		case "status":
			rk.status()
		case "exit", "quit":
			return
		case "":
		default:
			fmt.Println("Unknown command, type 'help'")
		}
	}
}

func (rk *RosterKeeper) help() {
	fmt.Println(`Commands:
  teams        list teams
  players      list players of a team, best rating first
  add-team     create a team
  add-player   add a player to a team
  del-player   delete a player
  sync         push pending changes now
  status       connectivity and pending queue
  exit         quit`)
}

func (rk *RosterKeeper) listTeams() {
	records, err := rk.service.GetAll(rk.ctx, models.CollectionTeams)
	if err != nil {
		fmt.Println("Failed to list teams:", err)
		return
	}
	if len(records) == 0 {
		fmt.Println("No teams yet")
		return
	}
	for _, rec := range records {
		team := models.TeamFromRecord(rec)
		mark := ""
		if !rec.Synced {
			mark = " (not synced)"
		}
		fmt.Printf("%s  %s, %s%s\n", team.ID, team.Name, team.City, mark)
	}
}

func (rk *RosterKeeper) listPlayers() {
	rk.rl.SetPrompt("Team id (empty for all): ")
	teamID, _ := rk.rl.Readline()
	teamID = strings.TrimSpace(teamID)

	records, err := rk.service.Query(rk.ctx, models.CollectionPlayers, func(rec models.Record) bool {
		return teamID == "" || rec.Fields["team_id"] == teamID
	})
	if err != nil {
		fmt.Println("Failed to list players:", err)
		return
	}
	players := make([]models.Player, 0, len(records))
	for _, rec := range records {
		players = append(players, models.PlayerFromRecord(rec))
	}
	rating.SortByRating(players)
	for _, p := range players {
		r := rating.Rate(p)
		fmt.Printf("%s  %-20s %-8s rating %.1f division %s\n",
			p.ID, p.Name, p.Position, r, rating.Division(r))
	}
}

func (rk *RosterKeeper) addTeam() {
	rk.rl.SetPrompt("Team name: ")
	name, _ := rk.rl.Readline()
	rk.rl.SetPrompt("City: ")
	city, _ := rk.rl.Readline()
	rk.rl.SetPrompt("Group id (optional): ")
	groupID, _ := rk.rl.Readline()

	team := models.Team{GroupID: strings.TrimSpace(groupID), Name: strings.TrimSpace(name), City: strings.TrimSpace(city)}
	rec := team.ToRecord()
	saved, err := rk.service.Save(rk.ctx, models.CollectionTeams, "", rec.Fields)
	if err != nil {
		fmt.Println("Failed to save team:", err)
		return
	}
	fmt.Printf("Team %s saved (id %s)\n", team.Name, saved.ID)
}

func (rk *RosterKeeper) addPlayer() {
	digitsOnly, _ := regexp.Compile(`^\d+$`)

	rk.rl.SetPrompt("Team id: ")
	teamID, _ := rk.rl.Readline()
	rk.rl.SetPrompt("Player name: ")
	name, _ := rk.rl.Readline()
	rk.rl.SetPrompt("Position (guard/forward/center): ")
	position, _ := rk.rl.Readline()

	marks := make(map[string]int)
	for _, skill := range []string{"scoring", "defense", "passing", "stamina"} {
		for {
			rk.rl.SetPrompt(fmt.Sprintf("%s (0-100): ", skill))
			value, _ := rk.rl.Readline()
			value = strings.TrimSpace(value)
			if !digitsOnly.MatchString(value) {
				fmt.Println("Marks can only contain digits!")
				continue
			}
			n, _ := strconv.Atoi(value)
			if n > 100 {
				fmt.Println("Marks are capped at 100!")
				continue
			}
			marks[skill] = n
			break
		}
	}

	player := models.Player{
		TeamID:   strings.TrimSpace(teamID),
		Name:     strings.TrimSpace(name),
		Position: strings.TrimSpace(position),
		Scoring:  marks["scoring"],
		Defense:  marks["defense"],
		Passing:  marks["passing"],
		Stamina:  marks["stamina"],
	}
	rec := player.ToRecord()
	saved, err := rk.service.Save(rk.ctx, models.CollectionPlayers, "", rec.Fields)
	if err != nil {
		fmt.Println("Failed to save player:", err)
		return
	}
	r := rating.Rate(player)
	fmt.Printf("Player %s saved (id %s, rating %.1f, division %s)\n",
		player.Name, saved.ID, r, rating.Division(r))
}

func (rk *RosterKeeper) deletePlayer() {
	rk.rl.SetPrompt("Player id: ")
	id, _ := rk.rl.Readline()
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	if err := rk.service.Delete(rk.ctx, models.CollectionPlayers, id); err != nil {
		fmt.Println("Failed to delete player:", err)
		return
	}
	fmt.Println("Player deleted")
}

func (rk *RosterKeeper) syncNow() {
	if err := rk.service.SyncPendingChanges(rk.ctx); err != nil {
		fmt.Println("Sync:", err)
		return
	}
	fmt.Println("All changes synced")
}

func (rk *RosterKeeper) status() {
	pending := rk.service.PendingChanges(rk.ctx)
	fmt.Printf("pending changes: %d\n", pending)
}
