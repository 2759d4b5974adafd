package main

import "github.com/IETI-Group/SOPHIA-TutorChatService/cmd"

func main() {
	cmd.Execute()
}
