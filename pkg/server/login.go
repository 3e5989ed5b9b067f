package server

import (
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/crystal-mush/gomud/pkg/crypt"
	"github.com/crystal-mush/gomud/pkg/game"
	"github.com/crystal-mush/gomud/pkg/telnet"
)

// MinPasswordLen is the shortest password accepted at creation.
const MinPasswordLen = 6

// Races and Classes are the choices offered during character creation.
var (
	Races   = []string{"human", "elf", "dwarf", "half-elf", "half-orc"}
	Classes = []string{"warrior", "barbarian", "mage", "thief", "cleric"}
)

// nanny asks the question belonging to d's current onboarding state. Each
// answer moves the descriptor to its next state, which calls back in here
// through stateChanged.
func (cm *ConnManager) nanny(d *Descriptor) {
	switch d.state {
	case StateGetName:
		d.Question("\r\nWhat is your name? ", func(answer string) {
			name := strings.TrimSpace(telnet.Printable(answer))
			if name == "" {
				d.SetState(StateGetName)
				return
			}
			if cm.Chars.FindByName(name) != nil {
				d.Write("\r\nThat name is already in play. Try another.\r\n")
				d.SetState(StateGetName)
				return
			}
			d.data[game.KeyName] = name
			d.SetState(StateConfirmName)
		})

	case StateConfirmName:
		prompt := fmt.Sprintf("\r\nHello %s!\r\nYou cannot change your name once you begin. Are you sure this is the name you want? ",
			d.data[game.KeyName])
		d.Question(prompt, func(answer string) {
			switch strings.ToLower(strings.TrimSpace(answer)) {
			case "y", "yes":
				d.SetState(StateGetPassword)
			case "n", "no":
				d.SetState(StateGetName)
			default:
				d.SetState(StateConfirmName)
			}
		})

	case StateGetPassword:
		d.Write("\r\npassword:")
		d.SuppressEcho()
		d.Question(" ", func(answer string) {
			d.RestoreEcho()
			pwd := telnet.Printable(answer)
			if len(pwd) < MinPasswordLen {
				d.Write(fmt.Sprintf("\r\nPassword must be at least %d characters long.\r\n", MinPasswordLen))
				d.SetState(StateGetPassword)
				return
			}
			if len(pwd) > crypt.MaxPasswordLen {
				d.Write(fmt.Sprintf("\r\nPassword must be at most %d characters long.\r\n", crypt.MaxPasswordLen))
				d.SetState(StateGetPassword)
				return
			}
			hash, err := crypt.Hash(pwd, cm.Conf.BcryptCost)
			if err != nil {
				log.Printf("[%d] Password hash failed: %v", d.id, err)
				d.Write("\r\nCould not set that password. Try another.\r\n")
				d.SetState(StateGetPassword)
				return
			}
			d.data[game.KeyPasswordHash] = hash
			d.SetState(StateConfirmPassword)
		})

	case StateConfirmPassword:
		d.Write("\r\nConfirm password:")
		d.SuppressEcho()
		d.Question(" ", func(answer string) {
			d.RestoreEcho()
			if !crypt.Check(telnet.Printable(answer), d.data[game.KeyPasswordHash]) {
				d.Write("\r\nPasswords do not match.\r\n")
				d.SetState(StateGetPassword)
				return
			}
			d.SetState(StateGetRace)
		})

	case StateGetRace:
		d.Write("\r\nThe following are playable races:\r\n" + strings.Join(Races, "\r\n\t"))
		d.Question("\r\nChoose your race from the above list: ", func(answer string) {
			// Terminals may still be acking the echo options here.
			race := strings.ToLower(strings.TrimSpace(telnet.Printable(answer)))
			if !slices.Contains(Races, race) {
				d.Write(fmt.Sprintf("\r\n%q is not one of the available races. Try again.\r\n", race))
				d.SetState(StateGetRace)
				return
			}
			d.data[game.KeyRace] = race
			d.SetState(StateGetClass)
		})

	case StateGetClass:
		d.Write("\r\nThe following are playable classes:\r\n" + strings.Join(Classes, "\r\n\t"))
		d.Question("\r\nChoose your class from the above list: ", func(answer string) {
			class := strings.ToLower(strings.TrimSpace(telnet.Printable(answer)))
			if !slices.Contains(Classes, class) {
				d.Write("\r\nThat is not one of the available classes. Try again.\r\n")
				d.SetState(StateGetClass)
				return
			}
			d.data[game.KeyClass] = class
			cm.enterGame(d)
		})

	default:
		log.Printf("[%d] No handler for state %s, disconnecting", d.id, d.state)
		d.Write("\r\nGot into a bad state. Disconnecting.\r\n")
		d.Close()
	}
}

// enterGame creates the descriptor's character and puts it in play. Any
// onboarding question still pending is dropped so the next line reaches the
// command queue.
func (cm *ConnManager) enterGame(d *Descriptor) {
	d.question = nil
	d.Char = game.NewCharacter(d, cm.Chars, cm.Conf.Prompt)
	d.SetState(StatePlaying)
	log.Printf("[%d] %s entered the game as a %s %s", d.id, d.Char.Name(), d.Char.Race(), d.Char.Class())

	if cm.Texts != nil {
		d.Char.SetFarewell(cm.Texts.GetQuit())
		if motd := cm.Texts.GetMotd(); motd != "" {
			d.Write(motd)
		}
	}
	d.Char.Write("\r\nBe sure to reference the \"help\" command.\r\n")
}
